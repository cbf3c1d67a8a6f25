package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"sync/atomic"

	"github.com/atinyakov/accountvault/internal/columns"
	"github.com/atinyakov/accountvault/internal/models"
	"go.uber.org/zap"
)

var spreadsheetIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{31,}$`)

// Settings configure a Client.
type Settings struct {
	// Target is a spreadsheet id or display name.
	Target string
	// Credentials is the service-account JSON. Empty disables the mirror.
	Credentials []byte
}

type handle struct {
	sheet    Sheet
	identity string
}

// Client owns the lazily resolved mirror handle. A successful resolution is
// kept for the life of the Client; failures are retried on the next call.
// Concurrent first calls may each resolve; the first to finish is kept.
type Client struct {
	settings  Settings
	dial      Dialer
	projector *columns.Projector
	log       *zap.Logger

	handle atomic.Pointer[handle]
}

// NewClient creates a Client. Nothing is dialed until the first call.
func NewClient(settings Settings, dial Dialer, projector *columns.Projector, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		settings:  settings,
		dial:      dial,
		projector: projector,
		log:       log,
	}
}

func looksLikeSpreadsheetID(s string) bool {
	return spreadsheetIDPattern.MatchString(s)
}

func (c *Client) resolve(ctx context.Context) (*handle, *Failure) {
	if h := c.handle.Load(); h != nil {
		return h, nil
	}
	if len(c.settings.Credentials) == 0 {
		return nil, missingCredentials()
	}

	var account struct {
		ClientEmail string `json:"client_email"`
	}
	if err := json.Unmarshal(c.settings.Credentials, &account); err != nil {
		return nil, wrapFailure(CodeInitError, err)
	}

	opener, err := c.dial(ctx, c.settings.Credentials)
	if err != nil {
		return nil, wrapFailure(CodeInitError, err)
	}

	target := c.settings.Target
	var sheet Sheet
	if looksLikeSpreadsheetID(target) {
		sheet, err = opener.OpenByID(ctx, target)
		if err != nil {
			c.log.Debug("open spreadsheet by id failed, trying by name",
				zap.String("target", target), zap.Error(err))
			sheet = nil
		}
	}
	if sheet == nil {
		sheet, err = opener.OpenByName(ctx, target)
		if errors.Is(err, ErrTargetNotFound) {
			return nil, notFound(target)
		}
		if err != nil {
			return nil, wrapFailure(CodeInitError, err)
		}
	}

	h := &handle{sheet: sheet, identity: account.ClientEmail}
	if !c.handle.CompareAndSwap(nil, h) {
		return c.handle.Load(), nil
	}
	c.log.Info("mirror resolved",
		zap.String("spreadsheet_id", sheet.SpreadsheetID()),
		zap.String("worksheet", sheet.Title()),
		zap.String("service_account", account.ClientEmail))
	return h, nil
}

// Append reconciles the header row and appends the projection of e and meta.
func (c *Client) Append(ctx context.Context, e models.VaultEntry, meta map[string]string) Result {
	h, f := c.resolve(ctx)
	if f != nil {
		return Result{Failure: f}
	}

	if err := c.reconcileHeader(ctx, h.sheet); err != nil {
		return Result{Failure: wrapFailure(CodeAppendError, err)}
	}

	if err := h.sheet.AppendRow(ctx, c.projector.Project(e, meta)); err != nil {
		return Result{Failure: wrapFailure(CodeAppendError, err)}
	}
	return Result{OK: true}
}

func (c *Client) reconcileHeader(ctx context.Context, sheet Sheet) error {
	current, err := sheet.FirstRow(ctx)
	if err != nil {
		// An unreadable header is rewritten like an empty one.
		c.log.Debug("read mirror header failed", zap.Error(err))
		current = nil
	}
	values, needed := c.projector.Spec().ReconcileHeader(current)
	if !needed {
		return nil
	}
	return sheet.WriteRange(ctx, columns.HeaderRange(len(values)), values)
}

// Status is a read-only snapshot of the mirror configuration and resolution.
type Status struct {
	SheetName      string       `json:"sheet_name"`
	HasCredentials bool         `json:"has_credentials"`
	OK             bool         `json:"ok"`
	Error          string       `json:"error,omitempty"`
	ServiceAccount string       `json:"service_account,omitempty"`
	WorksheetTitle string       `json:"worksheet_title,omitempty"`
	SpreadsheetID  string       `json:"spreadsheet_id,omitempty"`
	Columns        columns.Spec `json:"columns"`
	TimeZone       string       `json:"time_zone"`
	TimeFormat     string       `json:"time_format"`
}

// Status resolves the mirror if needed and reports what it found. It never
// writes to the spreadsheet.
func (c *Client) Status(ctx context.Context) Status {
	st := Status{
		SheetName:      c.settings.Target,
		HasCredentials: len(c.settings.Credentials) > 0,
		Columns:        c.projector.Spec(),
		TimeZone:       c.projector.Location().String(),
		TimeFormat:     c.projector.Layout(),
	}
	h, f := c.resolve(ctx)
	if f != nil {
		st.Error = f.Message
		return st
	}
	st.OK = true
	st.ServiceAccount = h.identity
	st.WorksheetTitle = h.sheet.Title()
	st.SpreadsheetID = h.sheet.SpreadsheetID()
	return st
}

// ProbeResult is the outcome of a write probe.
type ProbeResult struct {
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
	SheetName string `json:"sheet_name"`
}

// probeEntry is the sentinel row written by Probe.
func probeEntry() (models.VaultEntry, map[string]string) {
	title, tags := "ping", "debug"
	return models.VaultEntry{
		ID:         "PING",
		Ciphertext: "PING",
		Nonce:      "PING",
		Salt:       "PING",
		Title:      &title,
		Tags:       &tags,
	}, map[string]string{"platform": "test"}
}

// Probe appends a recognisable sentinel row to verify the mirror end to end.
func (c *Client) Probe(ctx context.Context) ProbeResult {
	e, meta := probeEntry()
	res := c.Append(ctx, e, meta)
	out := ProbeResult{OK: res.OK, SheetName: c.settings.Target}
	if res.Failure != nil {
		out.Error = res.Failure.Message
	}
	return out
}
