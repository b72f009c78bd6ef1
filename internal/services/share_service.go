package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"loantracker/internal/core"
	"loantracker/internal/metrics"
	"loantracker/internal/share"
	"loantracker/internal/store"
)

// Outcome is the result of resolving a share link.
type Outcome string

const (
	Resolved         Outcome = "resolved"
	Expired          Outcome = "expired"
	PasswordRequired Outcome = "password_required"
	PasswordRejected Outcome = "password_rejected"
	NotFound         Outcome = "not_found"
)

const DefaultLinkTTL = 7 * 24 * time.Hour

type (
	CreateLinkInput struct {
		PersonID            string
		IncludeTransactions bool
		IncludePersonalInfo bool
		Protect             bool
		// ExpiresIn of zero uses the configured default.
		ExpiresIn time.Duration
	}

	// CreatedLink is returned once. Password is only set for protected links
	// and is not recoverable afterwards.
	CreatedLink struct {
		Link     core.SharedLink `json:"link"`
		Token    string          `json:"token"`
		Password string          `json:"password,omitempty"`
	}

	// Snapshot is the read-only view a recipient gets.
	Snapshot struct {
		Person       core.Person        `json:"person"`
		Progress     int                `json:"progressPercent"`
		Transactions []core.Transaction `json:"transactions,omitempty"`
		ExpiresAt    time.Time          `json:"expiresAt"`
		Views        int64              `json:"views"`
	}

	Resolution struct {
		Outcome  Outcome   `json:"outcome"`
		Snapshot *Snapshot `json:"snapshot,omitempty"`
	}

	ShareConfig struct {
		BaseURL    string
		DefaultTTL time.Duration
		// HashCost is the bcrypt cost; zero means the library default.
		HashCost int
	}
)

// ShareService creates and resolves share links.
type ShareService struct {
	repo     store.Repository
	fallback store.LedgerReader
	signer   *share.Signer
	cfg      ShareConfig
	metrics  *metrics.Metrics
	now      func() time.Time
}

type ShareOption func(*ShareService)

// WithSampleFallback consults r when a person is missing from the repository.
func WithSampleFallback(r store.LedgerReader) ShareOption {
	return func(s *ShareService) { s.fallback = r }
}

func WithShareMetrics(m *metrics.Metrics) ShareOption {
	return func(s *ShareService) { s.metrics = m }
}

func WithShareClock(now func() time.Time) ShareOption {
	return func(s *ShareService) { s.now = now }
}

func NewShareService(repo store.Repository, signer *share.Signer, cfg ShareConfig, opts ...ShareOption) *ShareService {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultLinkTTL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	s := &ShareService{
		repo:   repo,
		signer: signer,
		cfg:    cfg,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ShareService) Create(ctx context.Context, in CreateLinkInput) (CreatedLink, error) {
	if in.ExpiresIn < 0 {
		return CreatedLink{}, core.ErrInvalidExpiry
	}
	ttl := in.ExpiresIn
	if ttl == 0 {
		ttl = s.cfg.DefaultTTL
	}

	p, _, err := s.person(ctx, in.PersonID, false)
	if err != nil {
		return CreatedLink{}, err
	}

	now := s.now()
	link := core.SharedLink{
		ID:                  uuid.NewString(),
		PersonID:            p.ID,
		PersonName:          p.Name,
		CreatedAt:           now,
		ExpiresAt:           now.Add(ttl),
		IncludeTransactions: in.IncludeTransactions,
		IncludePersonalInfo: in.IncludePersonalInfo,
		PasswordProtected:   in.Protect,
	}

	var password string
	if in.Protect {
		if password, err = share.GenerateSecret(); err != nil {
			return CreatedLink{}, err
		}
		if link.PasswordHash, err = share.HashSecret(password, s.cfg.HashCost); err != nil {
			return CreatedLink{}, err
		}
	}

	token, err := s.signer.Sign(link)
	if err != nil {
		return CreatedLink{}, err
	}
	link.URL = s.cfg.BaseURL + "/s/" + token

	if err := s.repo.SaveLink(ctx, link); err != nil {
		return CreatedLink{}, fmt.Errorf("save link: %w", err)
	}
	s.metrics.LinkCreated()
	slog.InfoContext(ctx, "Share link created",
		"link_id", link.ID,
		"person_id", link.PersonID,
		"expires_at", link.ExpiresAt,
		"protected", link.PasswordProtected)

	return CreatedLink{Link: redact(link), Token: token, Password: password}, nil
}

// ResolveToken verifies a signed share token and resolves the link it names.
// A token that fails verification, names another person or carries another
// expiry than the stored link is NotFound.
func (s *ShareService) ResolveToken(ctx context.Context, token, password string) (Resolution, error) {
	claims, err := s.signer.Parse(token)
	if err != nil {
		return s.outcome(ctx, "", NotFound), nil
	}
	link, err := s.repo.GetLink(ctx, claims.ID)
	if errors.Is(err, core.ErrNotFound) || (err == nil && !claimsMatch(claims, link)) {
		return s.outcome(ctx, claims.ID, NotFound), nil
	}
	if err != nil {
		return Resolution{}, fmt.Errorf("get link %s: %w", claims.ID, err)
	}
	return s.resolve(ctx, link, password)
}

// claimsMatch compares at second precision, the resolution of a token's exp.
func claimsMatch(c *share.Claims, l core.SharedLink) bool {
	return c.Subject == l.PersonID && c.Expiry().Unix() == l.ExpiresAt.Unix()
}

// Resolve evaluates, in order: existence, expiry, password, target person.
// Only a Resolved outcome counts a view.
func (s *ShareService) Resolve(ctx context.Context, linkID, password string) (Resolution, error) {
	link, err := s.repo.GetLink(ctx, linkID)
	if errors.Is(err, core.ErrNotFound) {
		return s.outcome(ctx, linkID, NotFound), nil
	}
	if err != nil {
		return Resolution{}, fmt.Errorf("get link %s: %w", linkID, err)
	}
	return s.resolve(ctx, link, password)
}

func (s *ShareService) resolve(ctx context.Context, link core.SharedLink, password string) (Resolution, error) {
	if link.Expired(s.now()) {
		return s.outcome(ctx, link.ID, Expired), nil
	}
	if link.PasswordProtected {
		if password == "" {
			return s.outcome(ctx, link.ID, PasswordRequired), nil
		}
		if !share.VerifySecret(link.PasswordHash, password) {
			return s.outcome(ctx, link.ID, PasswordRejected), nil
		}
	}

	p, txs, err := s.person(ctx, link.PersonID, link.IncludeTransactions)
	if errors.Is(err, core.ErrNotFound) {
		return s.outcome(ctx, link.ID, NotFound), nil
	}
	if err != nil {
		return Resolution{}, err
	}

	views, err := s.repo.IncrementViews(ctx, link.ID)
	if err != nil {
		return Resolution{}, fmt.Errorf("count view of %s: %w", link.ID, err)
	}

	if !link.IncludePersonalInfo {
		p.PersonalInfo = nil
	}
	snap := &Snapshot{
		Person:    p,
		Progress:  core.Progress(p),
		ExpiresAt: link.ExpiresAt,
		Views:     views,
	}
	if link.IncludeTransactions {
		snap.Transactions = txs
		if snap.Transactions == nil {
			snap.Transactions = []core.Transaction{}
		}
	}
	res := s.outcome(ctx, link.ID, Resolved)
	res.Snapshot = snap
	return res, nil
}

// person reads from the repository first and then from the sample fallback.
func (s *ShareService) person(ctx context.Context, id string, withTxs bool) (core.Person, []core.Transaction, error) {
	p, txs, err := readLedger(ctx, s.repo, id, withTxs)
	if errors.Is(err, core.ErrNotFound) && s.fallback != nil {
		return readLedger(ctx, s.fallback, id, withTxs)
	}
	return p, txs, err
}

func readLedger(ctx context.Context, r store.LedgerReader, id string, withTxs bool) (core.Person, []core.Transaction, error) {
	p, err := r.GetPerson(ctx, id)
	if err != nil {
		return core.Person{}, nil, err
	}
	if !withTxs {
		return p, nil, nil
	}
	txs, err := r.ListTransactions(ctx, id)
	if err != nil {
		return core.Person{}, nil, err
	}
	return p, txs, nil
}

func (s *ShareService) outcome(ctx context.Context, linkID string, o Outcome) Resolution {
	s.metrics.Resolution(string(o))
	slog.DebugContext(ctx, "Share link resolution", "link_id", linkID, "outcome", o)
	return Resolution{Outcome: o}
}

func (s *ShareService) List(ctx context.Context) ([]core.SharedLink, error) {
	links, err := s.repo.ListLinks(ctx)
	if err != nil {
		return nil, err
	}
	for i := range links {
		links[i] = redact(links[i])
	}
	return links, nil
}

func (s *ShareService) Delete(ctx context.Context, linkID string) error {
	if err := s.repo.DeleteLink(ctx, linkID); err != nil {
		return fmt.Errorf("delete link %s: %w", linkID, err)
	}
	slog.InfoContext(ctx, "Share link deleted", "link_id", linkID)
	return nil
}

func (s *ShareService) Summary(ctx context.Context) (core.LinksSummary, error) {
	links, err := s.repo.ListLinks(ctx)
	if err != nil {
		return core.LinksSummary{}, err
	}
	return core.SummarizeLinks(links, s.now()), nil
}

// redact drops the verifier from links leaving the service.
func redact(l core.SharedLink) core.SharedLink {
	l.PasswordHash = ""
	return l
}
