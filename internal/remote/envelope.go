package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/JonMunkholm/ledgerdesk/internal/listing"
)

// pagedEnvelope is the default list shape: {data: [...], pagination: {total, pages}}.
type pagedEnvelope struct {
	Data       []Record `json:"data"`
	Pagination struct {
		Total int `json:"total"`
		Pages int `json:"pages"`
	} `json:"pagination"`
}

// decodePage normalises any supported list shape into a page.
func decodePage(raw json.RawMessage, ep Endpoint) (listing.Page[Record], error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return listing.Page[Record]{}, nil
	}

	if ep.Single {
		rec, err := decodeRecord(raw)
		if err != nil {
			return listing.Page[Record]{}, err
		}
		if rec == nil {
			return listing.Page[Record]{}, nil
		}
		return listing.Page[Record]{Items: []Record{rec}, Total: 1, TotalPages: 1}, nil
	}

	if raw[0] == '[' {
		var items []Record
		if err := json.Unmarshal(raw, &items); err != nil {
			return listing.Page[Record]{}, err
		}
		return listing.Page[Record]{Items: items, Total: len(items)}, nil
	}

	if ep.ItemsField == "" {
		var env pagedEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return listing.Page[Record]{}, err
		}
		return listing.Page[Record]{
			Items:      env.Data,
			Total:      env.Pagination.Total,
			TotalPages: env.Pagination.Pages,
		}, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return listing.Page[Record]{}, err
	}
	itemsRaw, ok := fields[ep.ItemsField]
	if !ok {
		return listing.Page[Record]{}, fmt.Errorf("response has no %q field", ep.ItemsField)
	}
	var page listing.Page[Record]
	if err := json.Unmarshal(itemsRaw, &page.Items); err != nil {
		return listing.Page[Record]{}, fmt.Errorf("field %q: %w", ep.ItemsField, err)
	}
	if err := unmarshalInt(fields, "total", &page.Total); err != nil {
		return listing.Page[Record]{}, err
	}
	if err := unmarshalInt(fields, "totalPages", &page.TotalPages); err != nil {
		return listing.Page[Record]{}, err
	}
	if _, ok := fields["total"]; !ok {
		page.Total = len(page.Items)
	}
	return page, nil
}

func unmarshalInt(fields map[string]json.RawMessage, name string, dst *int) error {
	raw, ok := fields[name]
	if !ok {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("field %q: %w", name, err)
	}
	return nil
}

// decodeRecord reads a write acknowledgement. Records wrapped in {data: {...}}
// are unwrapped; bodies that are not objects yield nil.
func decodeRecord(raw json.RawMessage) (Record, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, nil
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if inner, ok := rec["data"].(map[string]any); ok && len(rec) <= 2 {
		return Record(inner), nil
	}
	return rec, nil
}

// errorBody is the structured error shape. Servers send the list under
// "errors" or "validationErrors", as objects or plain strings.
type errorBody struct {
	Error            string          `json:"error"`
	Message          string          `json:"message"`
	Errors           json.RawMessage `json:"errors"`
	ValidationErrors json.RawMessage `json:"validationErrors"`
}

const maxErrorBody = 64 << 10

// readError turns a non-2xx response into a *listing.ServerError. Bodies that
// are not structured leave the error unstructured, which presents as a
// transport failure.
func readError(resp *http.Response) error {
	se := &listing.ServerError{Status: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(bytes.TrimSpace(data)) == 0 {
		return se
	}
	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		return se
	}

	se.Message = strings.TrimSpace(body.Error)
	se.Errors = append(fieldErrors(body.Errors), fieldErrors(body.ValidationErrors)...)
	if se.Message == "" && len(se.Errors) == 0 && resp.StatusCode < 500 {
		se.Message = strings.TrimSpace(body.Message)
	}
	return se
}

func fieldErrors(raw json.RawMessage) []listing.FieldError {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil
	}
	var objs []listing.FieldError
	if err := json.Unmarshal(raw, &objs); err == nil {
		return objs
	}
	var strs []string
	if err := json.Unmarshal(raw, &strs); err == nil {
		out := make([]listing.FieldError, len(strs))
		for i, s := range strs {
			out[i] = listing.FieldError{Message: s}
		}
		return out
	}
	return nil
}
