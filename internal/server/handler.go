package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openhrx/fieldgate/internal/routing"
	"github.com/openhrx/fieldgate/modules/fieldperm/domain/ports"
	"github.com/openhrx/fieldgate/modules/fieldperm/infrastructure/persistence"
	"github.com/openhrx/fieldgate/modules/fieldperm/services"
	"github.com/openhrx/fieldgate/pkg/authz"
)

func NewHandler() (http.Handler, error) {
	registry, err := loadRegistry()
	if err != nil {
		return nil, err
	}

	grants, err := loadGrantStore()
	if err != nil {
		return nil, err
	}

	fallbackVerdict, err := fallbackVerdictFromEnv()
	if err != nil {
		return nil, err
	}

	resolver := services.NewResolver(grants, registry, fallbackVerdict)

	router := routing.NewRouter()
	router.Handle(http.MethodGet, "/health", http.HandlerFunc(handleHealth))
	router.Handle(http.MethodGet, "/healthz", http.HandlerFunc(handleHealth))
	router.Handle(http.MethodPost, "/api/v1/fields/resolve", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleFieldResolveAPI(w, r, resolver, registry)
	}))
	router.Handle(http.MethodPost, "/api/v1/fields/capabilities", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleFieldCapabilitiesAPI(w, r, resolver, registry)
	}))

	return withPrincipal(router), nil
}

func MustNewHandler() http.Handler {
	h, err := NewHandler()
	if err != nil {
		panic(errors.New("server: failed to build handler: " + err.Error()))
	}
	return h
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// loadGrantStore picks the static-grant backend: postgres when
// DATABASE_URL is set, the casbin policy files otherwise.
func loadGrantStore() (ports.GrantStore, error) {
	if dsn := strings.TrimSpace(os.Getenv("DATABASE_URL")); dsn != "" {
		pool, err := pgxpool.New(context.Background(), dsn)
		if err != nil {
			return nil, err
		}
		return persistence.NewGrantPGStore(pool, os.Getenv("TENANT_ID")), nil
	}

	modelPath := os.Getenv("GRANTS_MODEL_PATH")
	if modelPath == "" {
		p, err := defaultGrantsConfigPath("config/access/model.conf")
		if err != nil {
			return nil, err
		}
		modelPath = p
	}
	policyPath := os.Getenv("GRANTS_POLICY_PATH")
	if policyPath == "" {
		p, err := defaultGrantsConfigPath("config/access/policy.csv")
		if err != nil {
			return nil, err
		}
		policyPath = p
	}
	mode, err := authz.ModeFromEnv()
	if err != nil {
		return nil, err
	}
	return authz.NewStore(modelPath, policyPath, mode)
}

func fallbackVerdictFromEnv() (bool, error) {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv("FIELDGATE_FALLBACK_VERDICT")))
	switch raw {
	case "", "deny":
		return false, nil
	case "allow":
		return true, nil
	default:
		return false, errors.New("server: invalid FIELDGATE_FALLBACK_VERDICT (expected allow|deny)")
	}
}

func defaultGrantsConfigPath(rel string) (string, error) {
	path := rel
	for i := 0; i < 8; i++ {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		path = filepath.Join("..", path)
	}
	return "", errors.New("server: grants config not found: " + rel)
}
