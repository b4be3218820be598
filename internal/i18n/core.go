package i18n

import (
	"embed"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/gin-gonic/gin"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/syncwave/crm/internal/common/cnst"
	"golang.org/x/text/language"
)

//go:embed translations/*.toml
var builtin embed.FS

var (
	mu          sync.RWMutex
	translator  *I18n
	defaultLang = cnst.LangDefault
)

// SetDefaultLanguage sets the fallback language for error messages
func SetDefaultLanguage(lang string) {
	mu.Lock()
	defer mu.Unlock()
	defaultLang = normalizeLangWith(lang, cnst.LangDefault)
}

func getDefaultLang() string {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLang
}

// InitTranslator builds the global translator from the built-in messages,
// overlaid with the TOML files found in overridesDir when it is set
func InitTranslator(overridesDir string) error {
	t := NewI18n(language.English)
	if err := t.LoadBuiltin(); err != nil {
		return err
	}
	if overridesDir != "" {
		if err := t.LoadTranslations(overridesDir); err != nil {
			return err
		}
	}
	mu.Lock()
	translator = t
	mu.Unlock()
	return nil
}

// GetTranslator returns the global translator, initializing it with the
// built-in messages on first use
func GetTranslator() *I18n {
	mu.RLock()
	t := translator
	mu.RUnlock()
	if t != nil {
		return t
	}
	_ = InitTranslator("")
	mu.RLock()
	defer mu.RUnlock()
	return translator
}

// I18n manages internationalization and translations
type I18n struct {
	bundle      *i18n.Bundle
	defaultLang language.Tag
}

// NewI18n creates a new I18n instance with the specified default language
func NewI18n(defaultLang language.Tag) *I18n {
	bundle := i18n.NewBundle(defaultLang)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	return &I18n{
		bundle:      bundle,
		defaultLang: defaultLang,
	}
}

// LoadBuiltin loads the translations compiled into the binary
func (i *I18n) LoadBuiltin() error {
	entries, err := builtin.ReadDir("translations")
	if err != nil {
		return fmt.Errorf("failed to read built-in translations: %w", err)
	}
	for _, e := range entries {
		if _, err := i.bundle.LoadMessageFileFS(builtin, path.Join("translations", e.Name())); err != nil {
			return fmt.Errorf("failed to load %s: %w", e.Name(), err)
		}
	}
	return nil
}

// LoadTranslations loads translation files from the specified directory
func (i *I18n) LoadTranslations(translationsDir string) error {
	files, err := os.ReadDir(translationsDir)
	if err != nil {
		return fmt.Errorf("failed to read translations directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".toml") {
			continue
		}
		if _, err := i.bundle.LoadMessageFile(filepath.Join(translationsDir, file.Name())); err != nil {
			return fmt.Errorf("failed to load %s: %w", file.Name(), err)
		}
	}

	return nil
}

// Translate returns a localized string for the given message ID and language
func (i *I18n) Translate(msgID string, lang string, templateData map[string]any) string {
	localizer := i18n.NewLocalizer(i.bundle, lang, i.defaultLang.String())

	lc := &i18n.LocalizeConfig{MessageID: msgID}
	if len(templateData) > 0 {
		lc.TemplateData = templateData
	}

	msg, err := localizer.Localize(lc)
	if err != nil {
		return msgID
	}
	return msg
}

// TranslateContext returns a localized string using the Gin context's language preference
func (i *I18n) TranslateContext(c *gin.Context, msgID string, templateData map[string]any) string {
	return i.Translate(msgID, langFromContext(c), templateData)
}

// TranslateMessage translates a message ID with the global translator
func TranslateMessage(c *gin.Context, msgID string, data map[string]any) string {
	if t := GetTranslator(); t != nil {
		return t.TranslateContext(c, msgID, data)
	}
	return msgID
}
