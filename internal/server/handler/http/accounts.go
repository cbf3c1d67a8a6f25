package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/atinyakov/accountvault/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// VaultService defines the vault operations required by the AccountsHandler.
type VaultService interface {
	// Create persists the entry; meta only feeds the spreadsheet mirror.
	Create(ctx context.Context, f models.EntryFields, meta map[string]string) (models.VaultEntry, error)
	List(ctx context.Context) ([]models.VaultEntry, error)
	Get(ctx context.Context, id string) (models.VaultEntry, error)
	Update(ctx context.Context, id string, f models.EntryFields) (models.VaultEntry, error)
	Delete(ctx context.Context, id string) error
}

// AccountsHandler serves the /api/accounts endpoints.
type AccountsHandler struct {
	VaultService VaultService
	Logger       *zap.Logger
}

type entryRequest struct {
	Ciphertext string         `json:"ciphertext"`
	Nonce      string         `json:"nonce"`
	Salt       string         `json:"salt"`
	Title      *string        `json:"title"`
	Tags       *string        `json:"tags"`
	Meta       map[string]any `json:"meta"`
}

func (req entryRequest) fields() models.EntryFields {
	return models.EntryFields{
		Ciphertext: req.Ciphertext,
		Nonce:      req.Nonce,
		Salt:       req.Salt,
		Title:      req.Title,
		Tags:       req.Tags,
	}
}

// validate returns one message per violated field, in field order.
func (req entryRequest) validate() []string {
	var problems []string
	required := func(name, v string) {
		if v == "" {
			problems = append(problems, name+": field required")
		}
	}
	maxLen := func(name string, v *string, limit int) {
		if v != nil && utf8.RuneCountInString(*v) > limit {
			problems = append(problems, name+": must be at most "+strconv.Itoa(limit)+" characters")
		}
	}
	required("ciphertext", req.Ciphertext)
	required("nonce", req.Nonce)
	required("salt", req.Salt)
	maxLen("nonce", &req.Nonce, models.MaxNonceLen)
	maxLen("salt", &req.Salt, models.MaxSaltLen)
	maxLen("title", req.Title, models.MaxLabelLen)
	maxLen("tags", req.Tags, models.MaxLabelLen)
	return problems
}

func decodeEntry(r *http.Request) (entryRequest, error) {
	var req entryRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	err := dec.Decode(&req)
	return req, err
}

// List handles GET /api/accounts.
func (h *AccountsHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.VaultService.List(r.Context())
	if err != nil {
		h.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// Create handles POST /api/accounts.
// It returns 201 with the stored entry regardless of the mirror outcome.
func (h *AccountsHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, err := decodeEntry(r)
	if err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if problems := req.validate(); len(problems) > 0 {
		http.Error(w, strings.Join(problems, "; "), http.StatusUnprocessableEntity)
		return
	}

	e, err := h.VaultService.Create(r.Context(), req.fields(), coerceMeta(req.Meta))
	if err != nil {
		h.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// Get handles GET /api/accounts/{id}.
func (h *AccountsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}
	e, err := h.VaultService.Get(r.Context(), id)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// Update handles PUT /api/accounts/{id}. Meta in the body is ignored.
func (h *AccountsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}
	req, err := decodeEntry(r)
	if err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if problems := req.validate(); len(problems) > 0 {
		http.Error(w, strings.Join(problems, "; "), http.StatusUnprocessableEntity)
		return
	}

	e, err := h.VaultService.Update(r.Context(), id, req.fields())
	if err != nil {
		h.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// Delete handles DELETE /api/accounts/{id}. Deleting an absent entry
// still answers 204.
func (h *AccountsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}
	if err := h.VaultService.Delete(r.Context(), id); err != nil {
		h.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// entryID extracts the {id} path parameter in canonical UUID form.
func entryID(w http.ResponseWriter, r *http.Request) (string, bool) {
	parsed, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return "", false
	}
	return parsed.String(), true
}

func (h *AccountsHandler) serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, models.ErrFieldTooLong):
		http.Error(w, "field value too long", http.StatusUnprocessableEntity)
	case errors.Is(err, models.ErrDuplicateID):
		http.Error(w, "conflict", http.StatusConflict)
	default:
		if h.Logger != nil {
			h.Logger.Error("vault operation failed", zap.Error(err))
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// coerceMeta flattens decoded JSON metadata to strings. Strings are kept
// as is, numbers keep their JSON spelling, null becomes "", and arrays or
// objects become compact JSON.
func coerceMeta(meta map[string]any) map[string]string {
	if len(meta) == 0 {
		return nil
	}
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		out[k] = metaString(v)
	}
	return out
}

func metaString(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(v); err != nil {
			return ""
		}
		return strings.TrimSuffix(buf.String(), "\n")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
