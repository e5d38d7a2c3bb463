package offline

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"

	"github.com/mlodari/camposanto/internal/common"
	"github.com/mlodari/camposanto/internal/connectivity"
	"github.com/mlodari/camposanto/internal/gateway"
	"github.com/mlodari/camposanto/internal/logging"
	"github.com/mlodari/camposanto/internal/migrations"
	"github.com/mlodari/camposanto/internal/models"
	"github.com/mlodari/camposanto/internal/notify"
	"github.com/mlodari/camposanto/internal/repositories/metadata"
	"github.com/mlodari/camposanto/internal/repositories/pending"
	"github.com/mlodari/camposanto/internal/repositories/records"
)

// refreshMarkerPrefix keys the per-domain freshness markers in metadata.
const refreshMarkerPrefix = "refresh:"

// Options wires a Manager. Gateway, Monitor, Registry and DBPath are
// required; Notifier and Logger fall back to no-ops.
type Options struct {
	DBPath   string
	Gateway  gateway.Gateway
	Monitor  *connectivity.Monitor
	Registry *models.Registry
	Notifier *notify.Notifier
	Logger   logging.Logger

	// StalenessThreshold is the freshness-marker age past which a
	// local-first read refreshes from remote. Zero means 24 hours.
	StalenessThreshold time.Duration
}

// Manager orchestrates local-first reads, queue-or-write saves, and ordered
// replay of the pending-change queue.
type Manager struct {
	dbPath    string
	gateway   gateway.Gateway
	monitor   *connectivity.Monitor
	registry  *models.Registry
	notifier  *notify.Notifier
	logger    logging.Logger
	staleness time.Duration

	mu          sync.Mutex
	initialized bool
	degraded    bool
	db          *sql.DB
	records     records.Repository
	pending     pending.Repository
	meta        metadata.Repository

	syncing atomic.Bool
	now     func() time.Time
}

func NewManager(opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = logging.NewNopLogger()
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.NewNotifier()
	}
	if opts.StalenessThreshold == 0 {
		opts.StalenessThreshold = 24 * time.Hour
	}
	return &Manager{
		dbPath:    opts.DBPath,
		gateway:   opts.Gateway,
		monitor:   opts.Monitor,
		registry:  opts.Registry,
		notifier:  opts.Notifier,
		logger:    opts.Logger,
		staleness: opts.StalenessThreshold,
		now:       time.Now,
	}
}

// Initialize opens the local store, runs migrations, subscribes to
// connectivity transitions and, when currently online, fires a background
// sync pass. It is idempotent: only the first call performs work.
//
// When the store cannot be opened the manager degrades instead of failing
// the process: the error is reported once through the notifier, reads return
// empty results and writes return ErrorStoreUnavailable.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}
	m.initialized = true

	if err := m.openStore(ctx); err != nil {
		m.degraded = true
		m.notifier.Error("local storage unavailable: %v", err)
		m.logger.Error(ctx, "failed to open local store, running degraded", "error", err)
		return fmt.Errorf("%w: %v", common.ErrorStoreUnavailable, err)
	}

	m.monitor.OnChange(func(online bool) {
		if !online {
			return
		}
		m.notifier.Info("connection restored, synchronizing queued changes")
		go func() {
			if err := m.SyncChanges(context.Background()); err != nil {
				m.logger.Error(context.Background(), "sync after reconnect failed", "error", err)
			}
		}()
	})

	if m.monitor.Online() {
		go func() {
			if err := m.SyncChanges(context.Background()); err != nil {
				m.logger.Error(context.Background(), "initial sync failed", "error", err)
			}
		}()
	}

	return nil
}

func (m *Manager) openStore(ctx context.Context) error {
	db, err := sql.Open("sqlite", m.dbPath)
	if err != nil {
		return err
	}

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		_ = db.Close()
		return err
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		_ = db.Close()
		return err
	}

	m.db = db
	m.records = records.NewSQLiteRepository(db)
	m.pending = pending.NewSQLiteRepository(db)
	m.meta = metadata.NewSQLiteRepository(db)
	return nil
}

// Close releases the local store. Safe to call on a degraded manager.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.db == nil {
		return nil
	}
	err := m.db.Close()
	m.db = nil
	return err
}

func (m *Manager) unavailable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.degraded || m.db == nil
}

// GetAll returns all records of a domain. The local mirror answers first;
// when online and the mirror is empty or stale, a full remote fetch replaces
// the mirror contents and resets the freshness marker. Remote failures fall
// back to whatever local data exists; the read path never errors for that.
func (m *Manager) GetAll(ctx context.Context, domainName string) ([]models.Record, error) {
	if m.unavailable() {
		return nil, nil
	}
	dom, err := m.registry.Lookup(domainName)
	if err != nil {
		return nil, err
	}

	local, err := m.records.GetAll(ctx, dom.Name)
	if err != nil {
		m.logger.Error(ctx, "local read failed", "domain", dom.Name, "error", err)
		local = nil
	}

	if m.monitor.Online() && (len(local) == 0 || m.markerStale(ctx, dom.Name)) {
		fresh, err := m.refreshDomain(ctx, dom)
		if err != nil {
			m.logger.Warn(ctx, "remote refresh failed, serving local data", "domain", dom.Name, "error", err)
			m.notifier.Warning("showing locally cached %s data", dom.Name)
			return local, nil
		}
		return fresh, nil
	}

	return local, nil
}

// GetByID returns a single record. A local hit wins; a miss falls through to
// the remote only while online, mirroring the result for the next read.
func (m *Manager) GetByID(ctx context.Context, domainName, id string) (models.Record, error) {
	if m.unavailable() {
		return nil, common.ErrorNotFound
	}
	dom, err := m.registry.Lookup(domainName)
	if err != nil {
		return nil, err
	}

	rec, err := m.records.GetByID(ctx, dom.Name, id)
	if err == nil {
		return rec, nil
	}

	if !m.monitor.Online() {
		return nil, common.ErrorNotFound
	}

	rec, err = m.gateway.SelectByID(ctx, dom.Name, id)
	if err != nil {
		return nil, err
	}
	if err := m.records.Upsert(ctx, dom.Name, dom.DescriptorField, rec); err != nil {
		m.logger.Error(ctx, "failed to mirror fetched record", "domain", dom.Name, "id", id, "error", err)
	}
	return rec, nil
}

// Save writes a record. An empty id means insert, a non-empty id means
// update; there is no separate existence check.
//
// Online the write goes straight to the remote and the result is mirrored
// locally; a remote failure is a hard failure, never a queue candidate.
// Offline the write lands in the mirror optimistically and a pending change
// is queued for replay.
func (m *Manager) Save(ctx context.Context, domainName string, data models.Record, id string) error {
	if m.unavailable() {
		return common.ErrorStoreUnavailable
	}
	dom, err := m.registry.Lookup(domainName)
	if err != nil {
		return err
	}

	if m.monitor.Online() {
		return m.saveOnline(ctx, dom, data, id)
	}
	return m.saveOffline(ctx, dom, data, id)
}

func (m *Manager) saveOnline(ctx context.Context, dom models.Domain, data models.Record, id string) error {
	if id == "" {
		created, err := m.gateway.Insert(ctx, dom.Name, data)
		if err != nil {
			m.notifier.Error("failed to save %s: %v", dom.Name, err)
			return err
		}
		return m.records.Upsert(ctx, dom.Name, dom.DescriptorField, created)
	}

	if err := m.gateway.Update(ctx, dom.Name, id, data); err != nil {
		m.notifier.Error("failed to save %s: %v", dom.Name, err)
		return err
	}

	merged := data.WithID(id)
	if existing, err := m.records.GetByID(ctx, dom.Name, id); err == nil {
		merged = existing.Merge(data).WithID(id)
	}
	return m.records.Upsert(ctx, dom.Name, dom.DescriptorField, merged)
}

func (m *Manager) saveOffline(ctx context.Context, dom models.Domain, data models.Record, id string) error {
	op := models.OpUpdate
	if id == "" {
		// Client-assigned identifier so the queued change can address the
		// record and replay stays idempotent on re-send.
		op = models.OpInsert
		id = uuid.NewString()
	}

	full := data.WithID(id)
	if op == models.OpUpdate {
		if existing, err := m.records.GetByID(ctx, dom.Name, id); err == nil {
			full = existing.Merge(data).WithID(id)
		}
	}

	if err := m.records.Upsert(ctx, dom.Name, dom.DescriptorField, full); err != nil {
		return err
	}
	ch := models.NewPendingChange(op, dom.Name, full, m.now())
	if err := m.pending.Append(ctx, ch); err != nil {
		return err
	}

	m.notifier.Info("offline: %s change to %s queued for synchronization", op, dom.Name)
	return nil
}

// Delete removes a record by id. Online it is deleted remotely and purged
// locally; offline the local row becomes a tombstone hidden from reads and a
// delete change is queued, the row being purged only on confirmed replay.
func (m *Manager) Delete(ctx context.Context, domainName, id string) error {
	if m.unavailable() {
		return common.ErrorStoreUnavailable
	}
	dom, err := m.registry.Lookup(domainName)
	if err != nil {
		return err
	}

	if m.monitor.Online() {
		if err := m.gateway.Delete(ctx, dom.Name, id); err != nil {
			m.notifier.Error("failed to delete %s: %v", dom.Name, err)
			return err
		}
		return m.records.Purge(ctx, dom.Name, id)
	}

	if err := m.records.MarkDeleted(ctx, dom.Name, id); err != nil {
		return err
	}
	ch := models.NewPendingChange(models.OpDelete, dom.Name, models.Record{models.IDField: id}, m.now())
	if err := m.pending.Append(ctx, ch); err != nil {
		return err
	}

	m.notifier.Info("offline: delete of %s queued for synchronization", dom.Name)
	return nil
}

// PendingCount reports the current queue length.
func (m *Manager) PendingCount(ctx context.Context) (int, error) {
	if m.unavailable() {
		return 0, nil
	}
	return m.pending.Count(ctx)
}

// SyncChanges replays the pending-change queue against the remote API in
// creation order. A second call while one is running is a no-op, as is any
// call while offline or degraded.
//
// Each change is applied independently: a failure is logged and the change
// stays queued for the next pass, while later changes are still attempted.
// A successfully applied change is deleted from the queue immediately, so a
// crash mid-replay never re-applies confirmed changes. When at least one
// change went through, the touched domains are refreshed from remote to pick
// up server-side defaults and triggers.
func (m *Manager) SyncChanges(ctx context.Context) error {
	if !m.syncing.CompareAndSwap(false, true) {
		return nil
	}
	defer m.syncing.Store(false)

	if m.unavailable() || !m.monitor.Online() {
		return nil
	}

	changes, err := m.pending.All(ctx)
	if err != nil {
		return fmt.Errorf("failed to read pending changes: %w", err)
	}
	if len(changes) == 0 {
		return nil
	}

	sort.Slice(changes, func(i, j int) bool {
		if changes[i].CreatedAt.Equal(changes[j].CreatedAt) {
			return changes[i].ChangeID < changes[j].ChangeID
		}
		return changes[i].CreatedAt.Before(changes[j].CreatedAt)
	})

	applied := 0
	touched := make(map[string]bool)

	for _, ch := range changes {
		if err := m.applyChange(ctx, ch); err != nil {
			m.logger.Error(ctx, "failed to apply queued change",
				"change", ch.ChangeID, "op", ch.Op, "domain", ch.Domain, "error", err)
			continue
		}
		if err := m.pending.Delete(ctx, ch.ChangeID); err != nil {
			m.logger.Error(ctx, "failed to dequeue applied change", "change", ch.ChangeID, "error", err)
			continue
		}
		applied++
		touched[ch.Domain] = true
	}

	m.logger.Info(ctx, "sync pass complete", "applied", applied, "failed", len(changes)-applied)

	if applied == 0 {
		return nil
	}

	for name := range touched {
		dom, err := m.registry.Lookup(name)
		if err != nil {
			continue
		}
		if _, err := m.refreshDomain(ctx, dom); err != nil {
			m.logger.Warn(ctx, "post-sync refresh failed", "domain", name, "error", err)
		}
	}

	m.notifier.Info("synchronized %d queued change(s)", applied)
	return nil
}

func (m *Manager) applyChange(ctx context.Context, ch models.PendingChange) error {
	switch ch.Op {
	case models.OpInsert:
		_, err := m.gateway.Insert(ctx, ch.Domain, ch.Payload)
		return err
	case models.OpUpdate:
		return m.gateway.Update(ctx, ch.Domain, ch.RecordID, ch.Payload)
	case models.OpDelete:
		if err := m.gateway.Delete(ctx, ch.Domain, ch.RecordID); err != nil {
			return err
		}
		// Confirmed remotely, drop the tombstone.
		return m.records.Purge(ctx, ch.Domain, ch.RecordID)
	default:
		return fmt.Errorf("unknown operation %q: %w", ch.Op, common.ErrorInternal)
	}
}

// refreshDomain replaces the mirror's contents for the domain with the
// remote state and resets the freshness marker.
func (m *Manager) refreshDomain(ctx context.Context, dom models.Domain) ([]models.Record, error) {
	recs, err := m.gateway.Select(ctx, dom.Name, gateway.SelectOptions{
		Relations: dom.Relations,
		OrderBy:   dom.OrderBy,
	})
	if err != nil {
		return nil, err
	}
	if err := m.records.ReplaceAll(ctx, dom.Name, dom.DescriptorField, recs); err != nil {
		return nil, err
	}
	marker := m.now().UTC().Format(time.RFC3339)
	if err := m.meta.Set(ctx, refreshMarkerPrefix+dom.Name, []byte(marker)); err != nil {
		m.logger.Error(ctx, "failed to set freshness marker", "domain", dom.Name, "error", err)
	}
	return recs, nil
}

// markerStale reports whether the domain's last full refresh is older than
// the staleness threshold. A missing or unreadable marker counts as stale.
func (m *Manager) markerStale(ctx context.Context, domain string) bool {
	value, err := m.meta.Get(ctx, refreshMarkerPrefix+domain)
	if err != nil || value == nil {
		return true
	}
	at, err := time.Parse(time.RFC3339, string(value))
	if err != nil {
		return true
	}
	return m.now().Sub(at) > m.staleness
}
