package mailer

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lmorrell/coldreach/internal/config"
)

// Account is one sending identity with its rolling daily quota. All fields
// are guarded by the owning pool's mutex.
type Account struct {
	Email      string
	Password   string
	DailyLimit int

	sentToday int
	lastReset string // calendar day of the last counter reset
}

// AccountUsage is a point-in-time view of one account's quota.
type AccountUsage struct {
	Email      string `json:"email"`
	SentToday  int    `json:"sent_today"`
	DailyLimit int    `json:"daily_limit"`
	Available  bool   `json:"available"`
}

// AccountPool owns the fixed set of sending identities and picks the next
// usable one per send. Daily counters reset lazily the first time an account
// is touched on a new calendar day; there is no background timer. Selection
// is round-robin over the currently eligible accounts, so fairness is
// best-effort: the cursor's meaning shifts as accounts drop in and out of
// eligibility.
type AccountPool struct {
	mu       sync.Mutex
	accounts []*Account
	cursor   int
	logger   *slog.Logger
	now      func() time.Time
}

// NewAccountPool builds a pool from validated account configuration. The
// account list is fixed for the life of the pool; only quota bookkeeping
// mutates afterwards.
func NewAccountPool(cfgs []config.SendingAccount, logger *slog.Logger) (*AccountPool, error) {
	if len(cfgs) == 0 {
		return nil, fmt.Errorf("sending pool is empty")
	}

	p := &AccountPool{
		logger: logger,
		now:    time.Now,
	}
	for _, c := range cfgs {
		p.accounts = append(p.accounts, &Account{
			Email:      c.Email,
			Password:   c.Password,
			DailyLimit: c.DailyLimit,
			lastReset:  day(p.now()),
		})
	}

	logger.Info("sending pool loaded", "accounts", len(p.accounts))
	return p, nil
}

// Acquire selects the next account with remaining daily quota. It does not
// reserve quota: the caller charges the account with Charge only after the
// provider confirms transmission, so a failed send never consumes quota.
// Daily limits are advisory guardrails, not strict reservations.
func (p *AccountPool) Acquire() (*Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.resetIfNewDay()

	var eligible []*Account
	for _, a := range p.accounts {
		if a.sentToday < a.DailyLimit {
			eligible = append(eligible, a)
		}
	}

	if len(eligible) == 0 {
		p.logger.Warn("sending pool exhausted", "accounts", len(p.accounts))
		return nil, ErrPoolExhausted
	}

	account := eligible[p.cursor%len(eligible)]
	p.cursor = (p.cursor + 1) % len(eligible)

	p.logger.Debug("selected sending account",
		"account", account.Email,
		"sent_today", account.sentToday,
		"daily_limit", account.DailyLimit,
	)
	return account, nil
}

// Charge counts one confirmed transmission against the account.
func (p *AccountPool) Charge(a *Account) {
	p.mu.Lock()
	defer p.mu.Unlock()

	today := day(p.now())
	if a.lastReset != today {
		a.sentToday = 0
		a.lastReset = today
	}
	if a.sentToday < a.DailyLimit {
		a.sentToday++
	}
}

// Usage returns a snapshot of every account's quota, after applying the lazy
// daily reset so a stale count never crosses a day boundary.
func (p *AccountPool) Usage() []AccountUsage {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.resetIfNewDay()

	usage := make([]AccountUsage, 0, len(p.accounts))
	for _, a := range p.accounts {
		usage = append(usage, AccountUsage{
			Email:      a.Email,
			SentToday:  a.sentToday,
			DailyLimit: a.DailyLimit,
			Available:  a.sentToday < a.DailyLimit,
		})
	}
	return usage
}

// resetIfNewDay applies the lazy daily reset. Callers must hold p.mu.
func (p *AccountPool) resetIfNewDay() {
	today := day(p.now())
	for _, a := range p.accounts {
		if a.lastReset != today {
			a.sentToday = 0
			a.lastReset = today
		}
	}
}

// usageString renders the "3/2000" form used in send results and logs.
func (p *AccountPool) usageString(a *Account) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return fmt.Sprintf("%d/%d", a.sentToday, a.DailyLimit)
}

func day(t time.Time) string {
	return t.Format("2006-01-02")
}
