package migrate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migration is one versioned schema change. Versions sort lexically, so use
// fixed-width timestamps (20240101000001).
type Migration struct {
	Version string
	Name    string
	Up      func(tx *gorm.DB) error
	Down    func(tx *gorm.DB) error
}

// Record is a row of the schema_migrations ledger.
type Record struct {
	Version   string    `gorm:"primaryKey;size:32"`
	Name      string    `gorm:"size:191;not null"`
	AppliedAt time.Time `gorm:"not null"`
}

func (Record) TableName() string { return "schema_migrations" }

type Status struct {
	Version   string
	Name      string
	Applied   bool
	AppliedAt time.Time
}

var (
	ErrNoDown  = errors.New("migration has no down step")
	ErrUnknown = errors.New("applied migration is not known to this binary")
)

type Migrator struct {
	db         *gorm.DB
	log        *zap.Logger
	migrations []Migration
}

// New validates the set (non-empty unique versions, Up present) and sorts it.
func New(db *gorm.DB, l *zap.Logger, ms ...Migration) (*Migrator, error) {
	if l == nil {
		l = zap.NewNop()
	}
	sorted := append([]Migration(nil), ms...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })
	seen := make(map[string]struct{}, len(sorted))
	for _, m := range sorted {
		if m.Version == "" || m.Up == nil {
			return nil, fmt.Errorf("migration %q: version and up step are required", m.Name)
		}
		if _, dup := seen[m.Version]; dup {
			return nil, fmt.Errorf("migration version %s registered twice", m.Version)
		}
		seen[m.Version] = struct{}{}
	}
	return &Migrator{db: db, log: l, migrations: sorted}, nil
}

func (m *Migrator) ensureLedger(ctx context.Context) error {
	if err := m.db.WithContext(ctx).AutoMigrate(&Record{}); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	return nil
}

func (m *Migrator) applied(ctx context.Context) (map[string]Record, error) {
	var rows []Record
	if err := m.db.WithContext(ctx).Order("version ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	out := make(map[string]Record, len(rows))
	for _, r := range rows {
		out[r.Version] = r
	}
	return out, nil
}

// Up applies every pending migration in version order and returns the
// versions it applied. Each migration and its ledger row share one
// transaction; the first failure stops the run.
func (m *Migrator) Up(ctx context.Context) ([]string, error) {
	if err := m.ensureLedger(ctx); err != nil {
		return nil, err
	}
	done, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	var ran []string
	for _, mig := range m.migrations {
		if _, ok := done[mig.Version]; ok {
			continue
		}
		start := time.Now()
		err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := mig.Up(tx); err != nil {
				return err
			}
			return tx.Create(&Record{Version: mig.Version, Name: mig.Name, AppliedAt: time.Now().UTC()}).Error
		})
		if err != nil {
			return ran, fmt.Errorf("apply %s_%s: %w", mig.Version, mig.Name, err)
		}
		m.log.Info("migration applied",
			zap.String("version", mig.Version),
			zap.String("name", mig.Name),
			zap.Duration("took", time.Since(start)),
		)
		ran = append(ran, mig.Version)
	}
	return ran, nil
}

// Down reverts the newest steps applied migrations, newest first.
func (m *Migrator) Down(ctx context.Context, steps int) ([]string, error) {
	if steps <= 0 {
		return nil, nil
	}
	if err := m.ensureLedger(ctx); err != nil {
		return nil, err
	}
	done, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	byVersion := make(map[string]Migration, len(m.migrations))
	for _, mig := range m.migrations {
		byVersion[mig.Version] = mig
	}
	versions := make([]string, 0, len(done))
	for v := range done {
		versions = append(versions, v)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(versions)))

	var reverted []string
	for _, v := range versions {
		if len(reverted) == steps {
			break
		}
		mig, ok := byVersion[v]
		if !ok {
			return reverted, fmt.Errorf("%w: %s", ErrUnknown, v)
		}
		if mig.Down == nil {
			return reverted, fmt.Errorf("%w: %s_%s", ErrNoDown, mig.Version, mig.Name)
		}
		err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := mig.Down(tx); err != nil {
				return err
			}
			return tx.Delete(&Record{}, "version = ?", mig.Version).Error
		})
		if err != nil {
			return reverted, fmt.Errorf("revert %s_%s: %w", mig.Version, mig.Name, err)
		}
		m.log.Info("migration reverted", zap.String("version", mig.Version), zap.String("name", mig.Name))
		reverted = append(reverted, mig.Version)
	}
	return reverted, nil
}

// Status lists every known migration with its applied state.
func (m *Migrator) Status(ctx context.Context) ([]Status, error) {
	if err := m.ensureLedger(ctx); err != nil {
		return nil, err
	}
	done, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Status, 0, len(m.migrations))
	for _, mig := range m.migrations {
		st := Status{Version: mig.Version, Name: mig.Name}
		if r, ok := done[mig.Version]; ok {
			st.Applied = true
			st.AppliedAt = r.AppliedAt
		}
		out = append(out, st)
	}
	return out, nil
}

// Pending reports how many known migrations are not applied yet.
func (m *Migrator) Pending(ctx context.Context) (int, error) {
	st, err := m.Status(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, s := range st {
		if !s.Applied {
			n++
		}
	}
	return n, nil
}

// NextVersion is the version a freshly scaffolded migration should use.
func NextVersion(now time.Time) string {
	return now.UTC().Format("20060102150405")
}
