// Package application contains use-case orchestration services.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/accountvault/internal/domain/model"
	"github.com/ericfisherdev/accountvault/internal/domain/port/driven"
)

// ValidationError reports an account field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// VaultService manages accounts and publishes a full snapshot of the vault to
// subscribers after every change.
type VaultService struct {
	store  driven.AccountStore
	logger *slog.Logger
	now    func() time.Time

	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
}

// subscriber holds the latest undelivered snapshot for one Subscribe call.
// pending has capacity 1; a newer snapshot replaces an unread one.
type subscriber struct {
	pending chan []model.Account
}

// NewVaultService creates a VaultService backed by store.
func NewVaultService(store driven.AccountStore, logger *slog.Logger) *VaultService {
	return &VaultService{
		store:       store,
		logger:      logger,
		now:         time.Now,
		subscribers: make(map[*subscriber]struct{}),
	}
}

// List returns all accounts matching query, ordered by handle.
func (s *VaultService) List(ctx context.Context, query string) ([]model.Account, error) {
	accounts, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return FilterAccounts(accounts, query), nil
}

// Get returns a single account. Returns driven.ErrAccountNotFound if it does
// not exist.
func (s *VaultService) Get(ctx context.Context, id string) (model.Account, error) {
	return s.store.Get(ctx, id)
}

// DeviceGroups returns the device board for accounts matching query.
func (s *VaultService) DeviceGroups(ctx context.Context, query string) ([]model.DeviceGroup, error) {
	accounts, err := s.List(ctx, query)
	if err != nil {
		return nil, err
	}
	return GroupByDevice(accounts), nil
}

// Create validates and stores a new account, assigning its ID and UpdatedAt.
func (s *VaultService) Create(ctx context.Context, account model.Account) (model.Account, error) {
	account = normalizeAccount(account)
	if err := validateAccount(account); err != nil {
		return model.Account{}, err
	}

	account.ID = uuid.NewString()
	account.UpdatedAt = s.now().UTC()

	if err := s.store.Create(ctx, account); err != nil {
		return model.Account{}, fmt.Errorf("create account: %w", err)
	}

	s.logger.Info("account created", "id", account.ID, "platform", account.Platform, "handle", account.Handle)
	s.publish(ctx)
	return account, nil
}

// Update validates and replaces an existing account, refreshing UpdatedAt.
func (s *VaultService) Update(ctx context.Context, account model.Account) (model.Account, error) {
	account = normalizeAccount(account)
	if err := validateAccount(account); err != nil {
		return model.Account{}, err
	}

	account.UpdatedAt = s.now().UTC()

	if err := s.store.Update(ctx, account); err != nil {
		return model.Account{}, fmt.Errorf("update account %s: %w", account.ID, err)
	}

	s.logger.Info("account updated", "id", account.ID)
	s.publish(ctx)
	return account, nil
}

// Delete removes an account.
func (s *VaultService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete account %s: %w", id, err)
	}

	s.logger.Info("account deleted", "id", id)
	s.publish(ctx)
	return nil
}

// Subscribe returns a channel carrying full account snapshots: the current
// vault first, then one snapshot after every change. A subscriber that falls
// behind receives only the most recent snapshot. The channel is closed once
// ctx is done.
func (s *VaultService) Subscribe(ctx context.Context) (<-chan []model.Account, error) {
	initial, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load initial snapshot: %w", err)
	}

	sub := &subscriber{pending: make(chan []model.Account, 1)}
	sub.pending <- initial

	s.mu.Lock()
	s.subscribers[sub] = struct{}{}
	s.mu.Unlock()

	out := make(chan []model.Account)
	go func() {
		defer close(out)
		defer s.unsubscribe(sub)

		for {
			select {
			case <-ctx.Done():
				return
			case snapshot := <-sub.pending:
				select {
				case out <- snapshot:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (s *VaultService) unsubscribe(sub *subscriber) {
	s.mu.Lock()
	delete(s.subscribers, sub)
	s.mu.Unlock()
}

// publish loads the current vault and hands it to every subscriber. A failed
// load is logged and skipped; the next change publishes again.
func (s *VaultService) publish(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.subscribers) == 0 {
		return
	}

	snapshot, err := s.store.ListAll(ctx)
	if err != nil {
		s.logger.Warn("failed to load snapshot for subscribers", "error", err)
		return
	}

	for sub := range s.subscribers {
		// Drop an unread snapshot so the newest one always fits.
		select {
		case <-sub.pending:
		default:
		}
		sub.pending <- snapshot
	}
}

func normalizeAccount(a model.Account) model.Account {
	a.Platform = strings.ToLower(strings.TrimSpace(a.Platform))
	a.Handle = strings.TrimSpace(a.Handle)
	a.Username = strings.TrimSpace(a.Username)
	return a
}

func validateAccount(a model.Account) error {
	if a.Platform == "" {
		return &ValidationError{Field: "platform", Message: "is required"}
	}
	if a.Handle == "" {
		return &ValidationError{Field: "handle", Message: "is required"}
	}
	return nil
}
