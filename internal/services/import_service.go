package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"crm-backoffice/internal/apperror"
	"crm-backoffice/internal/database"
	"crm-backoffice/internal/importer"
	"crm-backoffice/internal/logger"
	"crm-backoffice/internal/models"
	"crm-backoffice/internal/repositories"
	"crm-backoffice/internal/validation"
)

// IngestionResult reports a bulk import row by row.
type IngestionResult struct {
	Success      bool           `json:"success"`
	RecordsCount int            `json:"recordsCount"`
	Errors       []string       `json:"errors,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
}

type ImportService struct {
	tx    database.TxRunner
	repos *repositories.Repositories
}

func NewImportService(tx database.TxRunner, repos *repositories.Repositories) *ImportService {
	return &ImportService{
		tx:    tx,
		repos: repos,
	}
}

func (s *ImportService) ImportCustomers(ctx context.Context, filename string, r io.Reader) (*IngestionResult, error) {
	rows, err := readImport(filename, r)
	if err != nil {
		return nil, fmt.Errorf("ImportCustomers: %w", err)
	}

	return ingest(ctx, s.tx, "customer", rows, ingestion[models.CustomerInput]{
		parse: func(row importer.Row) (models.CustomerInput, error) {
			return models.CustomerInput{
				Code:     row.Get("code"),
				Name:     row.Get("name"),
				Email:    row.Get("email"),
				Phone:    row.Get("phone"),
				Address:  row.Get("address"),
				City:     row.Get("city"),
				PICName:  row.Get("pic_name"),
				PICPhone: row.Get("pic_phone"),
				PICEmail: row.Get("pic_email"),
			}, nil
		},
		code: func(in models.CustomerInput) string { return in.Code },
		taken: func(ctx context.Context, q database.Querier, codes []string) (map[string]bool, error) {
			return s.repos.Customers.ExistingCodes(ctx, q, codes)
		},
		insert: func(ctx context.Context, q database.Querier, in models.CustomerInput) error {
			return s.repos.Customers.Create(ctx, q, customerFromInput(in))
		},
	})
}

func (s *ImportService) ImportProducts(ctx context.Context, filename string, r io.Reader) (*IngestionResult, error) {
	rows, err := readImport(filename, r)
	if err != nil {
		return nil, fmt.Errorf("ImportProducts: %w", err)
	}

	return ingest(ctx, s.tx, "product", rows, ingestion[models.ProductInput]{
		parse: func(row importer.Row) (models.ProductInput, error) {
			in := models.ProductInput{
				Code:        row.Get("code"),
				Name:        row.Get("name"),
				Kind:        models.ProductKind(strings.ToUpper(row.Get("kind"))),
				Unit:        row.Get("unit"),
				Description: row.Get("description"),
			}
			if raw := row.Get("price"); raw != "" {
				price, err := decimal.NewFromString(raw)
				if err != nil {
					return in, fmt.Errorf("invalid price %q", raw)
				}
				in.Price = price
			}
			return in, nil
		},
		code: func(in models.ProductInput) string { return in.Code },
		taken: func(ctx context.Context, q database.Querier, codes []string) (map[string]bool, error) {
			return s.repos.Products.ExistingCodes(ctx, q, codes)
		},
		insert: func(ctx context.Context, q database.Querier, in models.ProductInput) error {
			return s.repos.Products.Create(ctx, q, productFromInput(in))
		},
	})
}

func readImport(filename string, r io.Reader) ([]importer.Row, error) {
	rows, err := importer.ReadRows(filename, r)
	if errors.Is(err, importer.ErrUnsupportedFormat) {
		return nil, ErrUnsupportedImportFormat
	}
	if err != nil {
		return nil, apperror.Wrap(ErrUnreadableImport, err)
	}
	return rows, nil
}

type ingestion[T any] struct {
	parse  func(row importer.Row) (T, error)
	code   func(in T) string
	taken  func(ctx context.Context, q database.Querier, codes []string) (map[string]bool, error)
	insert func(ctx context.Context, q database.Querier, in T) error
}

type parsedRow[T any] struct {
	line  int
	input T
}

// ingest validates every row, then inserts the valid ones in one database
// transaction. Rejected rows are reported, not dropped.
func ingest[T any](ctx context.Context, tx database.TxRunner, entity string, rows []importer.Row, in ingestion[T]) (*IngestionResult, error) {
	log := logger.Ctx(ctx)

	var rejected []string
	var valid []parsedRow[T]
	firstLine := make(map[string]int, len(rows))
	for _, row := range rows {
		input, err := in.parse(row)
		if err == nil {
			err = validation.Struct(input)
		}
		if err != nil {
			rejected = append(rejected, fmt.Sprintf("Row %d: invalid %s: %s", row.Line, entity, describe(err)))
			continue
		}

		code := in.code(input)
		if first, ok := firstLine[code]; ok {
			rejected = append(rejected, fmt.Sprintf("Row %d: duplicate code %s (already on row %d)", row.Line, code, first))
			continue
		}
		firstLine[code] = row.Line
		valid = append(valid, parsedRow[T]{line: row.Line, input: input})
	}

	var inserted int
	var conflicts []string
	err := tx.WithinTx(ctx, func(q database.Querier) error {
		inserted, conflicts = 0, nil

		codes := make([]string, 0, len(valid))
		for _, p := range valid {
			codes = append(codes, in.code(p.input))
		}
		taken, err := in.taken(ctx, q, codes)
		if err != nil {
			return err
		}

		for _, p := range valid {
			code := in.code(p.input)
			if taken[code] {
				conflicts = append(conflicts, fmt.Sprintf("Row %d: %s code %s already exists", p.line, entity, code))
				continue
			}
			if err := in.insert(ctx, q, p.input); err != nil {
				return uniqueAs(fmt.Errorf("row %d: %w", p.line, err), ErrDuplicateCode)
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", entity, err)
	}

	result := &IngestionResult{
		RecordsCount: inserted,
		Errors:       append(rejected, conflicts...),
	}
	result.Success = len(result.Errors) == 0
	result.Details = map[string]any{
		"totalRecords": len(rows),
		"successful":   result.RecordsCount,
		"failed":       len(result.Errors),
	}

	event := log.Info()
	if !result.Success {
		event = log.Warn().Strs("errors", result.Errors)
	}
	event.Str("entity", entity).Int("total", len(rows)).Int("imported", inserted).Msg("Bulk import finished")
	return result, nil
}

// describe renders validation failures as "field=tag" pairs.
func describe(err error) string {
	fields := validation.Fields(err)
	if len(fields) == 0 {
		return err.Error()
	}
	parts := make([]string, 0, len(fields))
	for field, tag := range fields {
		parts = append(parts, field+"="+tag)
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}
