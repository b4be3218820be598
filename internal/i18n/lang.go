package i18n

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/syncwave/crm/internal/common/cnst"
	"golang.org/x/text/language"
)

var supported = []language.Tag{language.English, language.Portuguese}

var matcher = language.NewMatcher(supported)

// Middleware resolves the request language and stores it in the context
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(cnst.XLang, getLanguageFromRequest(c.Request))
		c.Next()
	}
}

// getLanguageFromRequest extracts language preference from HTTP headers
func getLanguageFromRequest(r *http.Request) string {
	if lang := r.Header.Get(cnst.XLang); lang != "" {
		return normalizeLang(lang)
	}

	if accept := r.Header.Get("Accept-Language"); accept != "" {
		tags, _, err := language.ParseAcceptLanguage(accept)
		if err == nil && len(tags) > 0 {
			_, idx, conf := matcher.Match(tags...)
			if conf != language.No {
				base, _ := supported[idx].Base()
				return base.String()
			}
		}
	}

	return getDefaultLang()
}

func langFromContext(c *gin.Context) string {
	if c == nil {
		return getDefaultLang()
	}
	if v, ok := c.Get(cnst.XLang); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return getDefaultLang()
}

// normalizeLang standardizes language codes
func normalizeLang(lang string) string {
	return normalizeLangWith(lang, getDefaultLang())
}

func normalizeLangWith(lang, fallback string) string {
	code := strings.ToLower(strings.Split(strings.TrimSpace(lang), "-")[0])
	switch code {
	case cnst.LangEN, cnst.LangPT:
		return code
	}
	return fallback
}
