package bootstrap

import (
	"context"
	"fmt"

	"github.com/locvowork/employee_records/apigateway/internal/config"
	"github.com/locvowork/employee_records/apigateway/internal/database"
	"github.com/locvowork/employee_records/apigateway/internal/domain"
	"github.com/locvowork/employee_records/apigateway/internal/events"
	"github.com/locvowork/employee_records/apigateway/internal/logger"
	"github.com/locvowork/employee_records/apigateway/internal/repository"
	"github.com/nats-io/nats.go"
)

// Store is the record store selected by STORE_DRIVER together with the
// handle that backs it.
type Store struct {
	Driver string
	Repo   domain.EmployeeRepository
	close  func(context.Context) error
}

// Close releases the store handle.
func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.close == nil {
		return nil
	}
	return s.close(ctx)
}

// OpenStore connects the configured backend and creates its uniqueness
// index or schema.
func OpenStore(ctx context.Context) (*Store, error) {
	cfg := config.DefaultEnvConfig
	store := &Store{Driver: cfg.STORE_DRIVER}

	switch cfg.STORE_DRIVER {
	case config.StoreMongo:
		client, err := database.NewMongoClient(ctx, database.MongoConfig{
			URL:        cfg.MONGO_URL,
			Database:   cfg.MONGO_DB,
			Collection: cfg.MONGO_COLLECTION,
			Timeout:    cfg.MONGO_TIMEOUT,
		})
		if err != nil {
			return nil, err
		}
		repo := repository.NewMongoEmployeeRepository(client.Database(cfg.MONGO_DB).Collection(cfg.MONGO_COLLECTION))
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		store.Repo = repo
		store.close = client.Disconnect

	case config.StoreDatastore:
		client, err := database.NewDatastoreClient(ctx, cfg.DATASTORE_PROJECT_ID)
		if err != nil {
			return nil, err
		}
		store.Repo = repository.NewDatastoreEmployeeRepository(client, cfg.DATASTORE_KIND)
		store.close = func(context.Context) error { return client.Close() }

	case config.StorePostgres:
		db, err := database.NewPostgresDB(ctx, database.Config{
			Host:            cfg.DB_HOST,
			Port:            cfg.DB_PORT,
			User:            cfg.DB_USER,
			Password:        cfg.DB_PASSWORD,
			DBName:          cfg.DB_NAME,
			SSLMode:         cfg.DB_SSL_MODE,
			MaxOpenConns:    cfg.DB_MAX_OPEN_CONNS,
			MaxIdleConns:    cfg.DB_MAX_IDLE_CONNS,
			ConnMaxLifetime: cfg.DB_CONN_MAX_LIFETIME,
		})
		if err != nil {
			return nil, err
		}
		repo := repository.NewPostgresEmployeeRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		store.Repo = repo
		store.close = func(context.Context) error { return db.Close() }

	case config.StoreMemory:
		store.Repo = repository.NewMemoryEmployeeRepository()

	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.STORE_DRIVER)
	}

	logger.InfoLog(ctx, "Record store %s ready", store.Driver)
	return store, nil
}

// OpenSearchIndex connects the search mirror. It returns nil when
// ELASTIC_URL is unset.
func OpenSearchIndex(ctx context.Context) (*database.ElasticSearchClient, error) {
	cfg := config.DefaultEnvConfig
	if cfg.ELASTIC_URL == "" {
		return nil, nil
	}
	es, err := database.NewElasticSearchClient(cfg.ELASTIC_URL, cfg.ELASTIC_INDEX)
	if err != nil {
		return nil, err
	}
	if err := es.EnsureIndex(ctx); err != nil {
		es.Stop()
		return nil, err
	}
	logger.InfoLog(ctx, "Search mirror %s/%s ready", cfg.ELASTIC_URL, cfg.ELASTIC_INDEX)
	return es, nil
}

// OpenEvents connects the event publisher. It returns nils when NATS_URL is
// unset.
func OpenEvents(ctx context.Context) (*events.NATSPublisher, *nats.Conn, error) {
	cfg := config.DefaultEnvConfig
	if cfg.NATS_URL == "" {
		return nil, nil, nil
	}
	pub, nc, err := events.Connect(cfg.NATS_URL, cfg.NATS_SUBJECT_PREFIX)
	if err != nil {
		return nil, nil, err
	}
	logger.InfoLog(ctx, "Publishing events on %s", pub.Subject("*"))
	return pub, nc, nil
}
