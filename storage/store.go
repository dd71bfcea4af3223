package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultQueryTimeout = 5 * time.Second
)

// index is a keyword in both dialects; clause columns get quoted.
var indexColumn = clause.Column{Name: "index"}

// ErrUnknownDriver is returned by Open for unsupported database drivers.
var ErrUnknownDriver = errors.New("storage: unknown driver")

// Store is the gorm-backed Accessor over the mirror database.
type Store struct {
	db      *gorm.DB
	timeout time.Duration
}

// Options tunes a Store.
type Options struct {
	// QueryTimeout bounds every accessor call. Zero selects the default.
	QueryTimeout time.Duration
	// Migrate creates missing tables on open. Used by tests and fresh sqlite
	// files.
	Migrate bool
	// MaxOpenConns and MaxIdleConns size the connection pool when set.
	MaxOpenConns int
	MaxIdleConns int
}

// Open connects to the mirror database using the named driver.
func Open(driver, dsn string, opts Options) (*Store, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverPostgres, "postgresql":
		if strings.TrimSpace(dsn) == "" {
			return nil, fmt.Errorf("storage: postgres dsn must be configured")
		}
		dialector = postgres.Open(dsn)
	case DriverSQLite, "":
		fileDSN, err := FileDSN(dsn)
		if err != nil {
			return nil, err
		}
		dialector = sqlite.Open(fileDSN)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if opts.MaxOpenConns > 0 || opts.MaxIdleConns > 0 {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if opts.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
		}
		if opts.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
		}
	}
	if opts.Migrate {
		if err := AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return New(db, opts.QueryTimeout), nil
}

// New wraps an existing gorm handle.
func New(db *gorm.DB, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	return &Store{db: db, timeout: timeout}
}

// DB exposes the underlying handle for fixtures and migrations.
func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) session(ctx context.Context) (*gorm.DB, context.CancelFunc, error) {
	if s == nil || s.db == nil {
		return nil, nil, ErrClosed
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	return s.db.WithContext(ctx), cancel, nil
}

func versionScope(at AsOf) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if at.Latest {
			return db.Where("timestamp_upper IS NULL")
		}
		return db.Where("timestamp_lower <= ? AND (timestamp_upper IS NULL OR timestamp_upper > ?)", at.Timestamp, at.Timestamp).
			Order("timestamp_lower DESC")
	}
}

// findOne runs a single-row query and maps an empty result to nil.
func findOne[T any](ctx context.Context, s *Store, build func(*gorm.DB) *gorm.DB) (*T, error) {
	db, cancel, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()
	var row T
	res := build(db.Model(&row)).Limit(1).Find(&row)
	if res.Error != nil {
		var zero T
		return nil, fmt.Errorf("query %T: %w", zero, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &row, nil
}

func (s *Store) LatestRecordFile(ctx context.Context) (*RecordFile, error) {
	return findOne[RecordFile](ctx, s, func(db *gorm.DB) *gorm.DB {
		return db.Order(clause.OrderByColumn{Column: indexColumn, Desc: true})
	})
}

func (s *Store) RecordFileByIndex(ctx context.Context, index int64) (*RecordFile, error) {
	return findOne[RecordFile](ctx, s, func(db *gorm.DB) *gorm.DB {
		return db.Where(clause.Eq{Column: indexColumn, Value: index})
	})
}

func (s *Store) RecordFileByTimestamp(ctx context.Context, ts int64) (*RecordFile, error) {
	return findOne[RecordFile](ctx, s, func(db *gorm.DB) *gorm.DB {
		return db.Where("consensus_start <= ? AND consensus_end >= ?", ts, ts).
			Order(clause.OrderByColumn{Column: indexColumn, Desc: true})
	})
}

func (s *Store) Entity(ctx context.Context, id int64, at AsOf) (*Entity, error) {
	return findOne[Entity](ctx, s, func(db *gorm.DB) *gorm.DB {
		return db.Scopes(versionScope(at)).Where("id = ?", id)
	})
}

func (s *Store) EntityByEvmAddress(ctx context.Context, addr []byte, at AsOf) (*Entity, error) {
	return findOne[Entity](ctx, s, func(db *gorm.DB) *gorm.DB {
		return db.Scopes(versionScope(at)).Where("evm_address = ?", addr)
	})
}

func (s *Store) EntityByAlias(ctx context.Context, alias []byte, at AsOf) (*Entity, error) {
	return findOne[Entity](ctx, s, func(db *gorm.DB) *gorm.DB {
		return db.Scopes(versionScope(at)).Where("alias = ?", alias)
	})
}

func (s *Store) Token(ctx context.Context, tokenID int64, at AsOf) (*Token, error) {
	return findOne[Token](ctx, s, func(db *gorm.DB) *gorm.DB {
		return db.Scopes(versionScope(at)).Where("token_id = ?", tokenID)
	})
}

func (s *Store) TokenAccount(ctx context.Context, accountID, tokenID int64, at AsOf) (*TokenAccount, error) {
	return findOne[TokenAccount](ctx, s, func(db *gorm.DB) *gorm.DB {
		return db.Scopes(versionScope(at)).Where("account_id = ? AND token_id = ?", accountID, tokenID)
	})
}

func (s *Store) TokenAllowance(ctx context.Context, owner, spender, tokenID int64, at AsOf) (*TokenAllowance, error) {
	return findOne[TokenAllowance](ctx, s, func(db *gorm.DB) *gorm.DB {
		return db.Scopes(versionScope(at)).Where("owner = ? AND spender = ? AND token_id = ?", owner, spender, tokenID)
	})
}

func (s *Store) Nft(ctx context.Context, tokenID, serial int64, at AsOf) (*Nft, error) {
	return findOne[Nft](ctx, s, func(db *gorm.DB) *gorm.DB {
		return db.Scopes(versionScope(at)).Where("token_id = ? AND serial_number = ?", tokenID, serial)
	})
}

func (s *Store) NftAllowance(ctx context.Context, owner, spender, tokenID int64, at AsOf) (*NftAllowance, error) {
	return findOne[NftAllowance](ctx, s, func(db *gorm.DB) *gorm.DB {
		return db.Scopes(versionScope(at)).Where("owner = ? AND spender = ? AND token_id = ?", owner, spender, tokenID)
	})
}

func (s *Store) CustomFee(ctx context.Context, tokenID int64, at AsOf) (*CustomFee, error) {
	return findOne[CustomFee](ctx, s, func(db *gorm.DB) *gorm.DB {
		return db.Scopes(versionScope(at)).Where("entity_id = ?", tokenID)
	})
}

func (s *Store) ContractBytecode(ctx context.Context, contractID int64) ([]byte, error) {
	row, err := findOne[Contract](ctx, s, func(db *gorm.DB) *gorm.DB {
		return db.Where("id = ?", contractID)
	})
	if err != nil || row == nil {
		return nil, err
	}
	return row.RuntimeBytecode, nil
}

func (s *Store) ContractState(ctx context.Context, contractID int64, slot []byte, at AsOf) ([]byte, error) {
	row, err := findOne[ContractState](ctx, s, func(db *gorm.DB) *gorm.DB {
		return db.Scopes(versionScope(at)).Where("contract_id = ? AND slot = ?", contractID, slot)
	})
	if err != nil || row == nil {
		return nil, err
	}
	return row.Value, nil
}

func (s *Store) Transaction(ctx context.Context, payerAccountID, validStartNs int64, nonce int32) (*Transaction, error) {
	return findOne[Transaction](ctx, s, func(db *gorm.DB) *gorm.DB {
		return db.Where("payer_account_id = ? AND valid_start_ns = ? AND nonce = ?", payerAccountID, validStartNs, nonce).
			Order("consensus_timestamp ASC")
	})
}

func (s *Store) ContractResult(ctx context.Context, consensusTimestamp int64) (*ContractResult, error) {
	return findOne[ContractResult](ctx, s, func(db *gorm.DB) *gorm.DB {
		return db.Where("consensus_timestamp = ?", consensusTimestamp)
	})
}

func (s *Store) ContractTransactionHash(ctx context.Context, hash []byte) (*ContractTransactionHash, error) {
	return findOne[ContractTransactionHash](ctx, s, func(db *gorm.DB) *gorm.DB {
		return db.Where("hash = ?", hash)
	})
}

func (s *Store) EthereumTransaction(ctx context.Context, consensusTimestamp int64) (*EthereumTransaction, error) {
	return findOne[EthereumTransaction](ctx, s, func(db *gorm.DB) *gorm.DB {
		return db.Where("consensus_timestamp = ?", consensusTimestamp)
	})
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var (
	_ Accessor = (*Store)(nil)
	_ Accessor = (*Memory)(nil)
)
