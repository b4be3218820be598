package crm

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/syncwave/crm/internal/access"
	"github.com/syncwave/crm/internal/apiserver/database"
	"github.com/syncwave/crm/internal/common/errorx"
	"go.uber.org/zap"
)

const exportTimeLayout = "02/01/2006 15:04"

var (
	importColumns = []string{"nome", "telefone", "email", "tags"}
	exportColumns = []string{"nome", "telefone", "email", "tags", "ativo", "criado_em"}
)

// RowError describes why one CSV line was not imported
type RowError struct {
	Line    int    `json:"line"`
	Field   string `json:"field,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// ImportResult summarizes a CSV import
type ImportResult struct {
	Created int        `json:"created"`
	Failed  int        `json:"failed"`
	Errors  []RowError `json:"errors"`
}

func (r *ImportResult) fail(line int, err error) {
	r.Failed++
	re := RowError{Line: line, Code: errorx.MsgInternalServer, Message: err.Error()}
	if e := errorx.As(err); e != nil {
		re.Field = e.Field
		re.Code = e.MessageID
		re.Message = ""
	}
	r.Errors = append(r.Errors, re)
}

// ImportContacts creates contacts from a CSV with the columns nome,
// telefone, email and tags (comma separated names). Failing rows are
// collected and the remaining rows still import.
func (s *Service) ImportContacts(ctx context.Context, p *access.Principal, companyID string, r io.Reader) (*ImportResult, error) {
	companyID = access.OwnerCompany(p, companyID)
	if err := s.policy.AuthorizeWrite(ctx, p, companyID); err != nil {
		return nil, err
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, errorx.Validation("file", errorx.MsgCSVInvalid).WithParam("Reason", err.Error())
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, col := range importColumns[:2] {
		if _, ok := index[col]; !ok {
			return nil, errorx.Validation("file", errorx.MsgCSVMissingColumns)
		}
	}
	field := func(record []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	result := &ImportResult{Errors: []RowError{}}
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				result.fail(line, errorx.Validation("file", errorx.MsgCSVInvalid).WithParam("Reason", perr.Err.Error()))
				continue
			}
			return nil, err
		}

		in := ContactInput{
			CompanyID: companyID,
			Name:      field(record, "nome"),
			Phone:     field(record, "telefone"),
			Email:     field(record, "email"),
			Origin:    OriginCSVImport,
		}
		tags := splitTagNames(field(record, "tags"))
		if err := s.importRow(ctx, p, in, tags); err != nil {
			result.fail(line, err)
			continue
		}
		result.Created++
	}

	s.logger.Info("contacts imported",
		zap.String("company_id", companyID),
		zap.Int("created", result.Created),
		zap.Int("failed", result.Failed),
		zap.String("by", p.Username))
	return result, nil
}

func (s *Service) importRow(ctx context.Context, p *access.Principal, in ContactInput, tags []string) error {
	return s.db.Transaction(ctx, func(ctx context.Context) error {
		contact, err := s.CreateContact(ctx, p, in)
		if err != nil {
			return err
		}
		for _, name := range tags {
			tag, err := s.ensureTag(ctx, contact.CompanyID, name)
			if err != nil {
				return err
			}
			if err := s.db.AttachTag(ctx, contact.ID, tag.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

func splitTagNames(s string) []string {
	var names []string
	for _, part := range strings.Split(s, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// ExportContacts writes the visible contacts of one company as CSV
func (s *Service) ExportContacts(ctx context.Context, p *access.Principal, companyID string, w io.Writer) error {
	companyID = access.OwnerCompany(p, companyID)
	if err := s.policy.Authorize(ctx, p, companyID); err != nil {
		return err
	}
	contacts, _, err := s.db.ListContacts(ctx, access.OnlyCompanies(companyID), database.ContactFilter{})
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(exportColumns); err != nil {
		return err
	}
	for _, c := range contacts {
		names := make([]string, len(c.Tags))
		for i, t := range c.Tags {
			names[i] = t.Name
		}
		active := "Não"
		if c.IsActive {
			active = "Sim"
		}
		row := []string{c.Name, c.Phone, c.Email, strings.Join(names, ", "), active, c.CreatedAt.Format(exportTimeLayout)}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write contact %s: %w", c.ID, err)
		}
	}
	writer.Flush()
	return writer.Error()
}
