package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"casa/internal/core"
)

// maxBodyBytes bounds request bodies; an import of a large household
// database stays well below it.
const maxBodyBytes = 8 << 20

// Amount accepts a JSON number or a decimal string ("12.34" or "12,34").
type Amount float64

func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := core.ParseAmount(s)
		if err != nil {
			return err
		}
		*a = Amount(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return core.ErrInvalidAmount
	}
	*a = Amount(v)
	return nil
}

// expenseRequest is the body of expense create and update. Absent fields
// are nil so the same shape serves partial updates.
type expenseRequest struct {
	Name          *string         `json:"name"`
	Amount        *Amount         `json:"amount"`
	Frequency     *core.Frequency `json:"frequency"`
	Category      *string         `json:"category"`
	IsVariable    *bool           `json:"isVariable"`
	IsIncome      *bool           `json:"isIncome"`
	Icon          *string         `json:"icon"`
	ImageURL      *string         `json:"imageUrl"`
	VariableMonth *int            `json:"variableMonth"`
	VariableYear  *int            `json:"variableYear"`
}

func (req expenseRequest) patch() core.ExpensePatch {
	p := core.ExpensePatch{
		Name:          req.Name,
		Frequency:     req.Frequency,
		Category:      req.Category,
		IsVariable:    req.IsVariable,
		IsIncome:      req.IsIncome,
		Icon:          req.Icon,
		ImageURL:      req.ImageURL,
		VariableMonth: req.VariableMonth,
		VariableYear:  req.VariableYear,
	}
	if req.Amount != nil {
		v := float64(*req.Amount)
		p.Amount = &v
	}
	return p
}

// expense builds a new record; absent fields take their zero value and are
// caught by validation.
func (req expenseRequest) expense() core.Expense {
	return req.patch().Apply(core.Expense{})
}

// decodeJSON reads a single JSON value from the request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return errors.New("request body is empty")
		case errors.As(err, &maxErr):
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		case core.IsValidation(err):
			return err
		default:
			return fmt.Errorf("invalid JSON body: %w", err)
		}
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON value")
	}
	return nil
}

// pathID parses the {id} route parameter.
func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

// parseYear reads a year from raw, falling back to def when raw is blank.
func parseYear(raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		return 0, core.ErrInvalidYear
	}
	if err := core.ValidateYear(year); err != nil {
		return 0, err
	}
	return year, nil
}
