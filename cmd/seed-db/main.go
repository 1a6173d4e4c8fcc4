// Command seed-db loads development users and catalog products into the
// database. It is idempotent per email: users that already exist are skipped
// along with their products.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/agrovalue/marketplace-api/internal/domain/product"
	"github.com/agrovalue/marketplace-api/internal/domain/user"
	"github.com/agrovalue/marketplace-api/internal/repository"
)

type userJSON struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type productJSON struct {
	FarmerEmail   string          `json:"farmerEmail"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stockQuantity"`
	ImageURL      string          `json:"imageUrl"`
}

type catalogJSON struct {
	Users    []userJSON    `json:"users"`
	Products []productJSON `json:"products"`
}

func main() {
	var (
		databaseURL string
		catalogFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "db/seed/catalog.json", "path to catalog JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile string) error {
	slog.Info("reading catalog file", slog.String("path", catalogFile))

	data, err := os.ReadFile(catalogFile)
	if err != nil {
		return errors.Wrap(err, "read catalog file")
	}

	var catalog catalogJSON
	if err := json.Unmarshal(data, &catalog); err != nil {
		return errors.Wrap(err, "parse catalog JSON")
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	users := repository.NewUserRepository(pool)
	products := repository.NewProductRepository(pool)

	farmerIDs, err := seedUsers(ctx, users, catalog.Users)
	if err != nil {
		return errors.Wrap(err, "seed users")
	}

	if err := seedProducts(ctx, products, catalog.Products, farmerIDs); err != nil {
		return errors.Wrap(err, "seed products")
	}

	return nil
}

// seedUsers inserts every user from the catalog, hashing passwords with
// bcrypt. Existing emails are skipped. It returns a map of email to user ID
// for every farmer so products can be attached to their owners.
func seedUsers(ctx context.Context, users user.Repository, seeds []userJSON) (map[string]string, error) {
	farmerIDs := make(map[string]string, len(seeds))

	for _, s := range seeds {
		role := user.Role(s.Role)
		if !role.Valid() {
			return nil, errors.Errorf("user %s: unknown role %q", s.Email, s.Role)
		}

		existing, err := users.GetByEmail(ctx, s.Email)
		switch {
		case err == nil:
			slog.Info("user already exists, skipping", slog.String("email", s.Email))
			if existing.Role == user.RoleFarmer {
				farmerIDs[existing.Email] = existing.ID
			}
			continue
		case !errors.Is(err, user.ErrNotFound):
			return nil, errors.Wrapf(err, "look up user %s", s.Email)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(s.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, errors.Wrapf(err, "hash password for %s", s.Email)
		}

		u := &user.User{
			ID:           uuid.New().String(),
			Name:         s.Name,
			Email:        s.Email,
			PasswordHash: string(hash),
			Role:         role,
			CreatedAt:    time.Now().UTC(),
		}
		if err := users.Create(ctx, u); err != nil {
			return nil, errors.Wrapf(err, "create user %s", s.Email)
		}

		slog.Info("seeded user", slog.String("email", s.Email), slog.String("role", s.Role))
		if role == user.RoleFarmer {
			farmerIDs[s.Email] = u.ID
		}
	}

	return farmerIDs, nil
}

// seedProducts inserts the catalog products concurrently, one insert per
// product, bounded to a small number of connections.
func seedProducts(ctx context.Context, products product.Repository, seeds []productJSON, farmerIDs map[string]string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for _, s := range seeds {
		farmerID, ok := farmerIDs[s.FarmerEmail]
		if !ok {
			slog.Info("owner missing or already seeded, skipping product",
				slog.String("name", s.Name), slog.String("farmerEmail", s.FarmerEmail))
			continue
		}

		g.Go(func() error {
			p := &product.Product{
				ID:            uuid.New().String(),
				FarmerID:      farmerID,
				Name:          s.Name,
				Description:   s.Description,
				Price:         s.Price,
				StockQuantity: s.StockQuantity,
				ImageURL:      s.ImageURL,
				CreatedAt:     time.Now().UTC(),
			}
			if err := products.Create(ctx, p); err != nil {
				return errors.Wrapf(err, "create product %s", s.Name)
			}
			slog.Info("seeded product", slog.String("name", s.Name))
			return nil
		})
	}

	return g.Wait()
}
