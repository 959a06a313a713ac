// seed provisions one organization for local testing: the org row, an owner membership, tenant
// connection settings and the encrypted dedicated key. Idempotent per org id.
//
// The dedicated key is read from SEED_DEDICATED_KEY so it does not end up in shell history.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"org-credential-broker/internal/config"
	"org-credential-broker/internal/db"
	membershipdomain "org-credential-broker/internal/membership/domain"
	membershiprepo "org-credential-broker/internal/membership/repository"
	orgdomain "org-credential-broker/internal/organization/domain"
	orgrepo "org-credential-broker/internal/organization/repository"
	policydomain "org-credential-broker/internal/policy/domain"
	policyrepo "org-credential-broker/internal/policy/repository"
	"org-credential-broker/internal/security"
)

const defaultOrgID = "0b6f1c9e-3f53-4a77-9a52-2a8d0b0c1e11"

func main() {
	orgID := flag.String("org-id", defaultOrgID, "Organization UUID")
	orgName := flag.String("org-name", "Acme Dev", "Organization name")
	ownerID := flag.String("owner-user-id", "", "Control-plane user id to make owner (required)")
	tenantURL := flag.String("tenant-url", "", "Tenant backend base URL (required)")
	tenantPublicKey := flag.String("tenant-public-key", "", "Tenant public API key (required)")
	policyFile := flag.String("policy-file", "", "Optional Rego module stored as this org's action policy")
	flag.Parse()

	if *ownerID == "" || *tenantURL == "" || *tenantPublicKey == "" {
		flag.Usage()
		os.Exit(2)
	}
	dedicatedKey := os.Getenv("SEED_DEDICATED_KEY")
	if dedicatedKey == "" {
		log.Fatal("SEED_DEDICATED_KEY is not set")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}
	vault, err := security.NewVault(cfg.EncryptionSecret)
	if err != nil {
		log.Fatalf("vault: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	orgs := orgrepo.NewPostgresRepository(pool)
	memberships := membershiprepo.NewPostgresRepository(pool)
	now := time.Now().UTC()

	existing, err := orgs.GetOrganizationByID(ctx, *orgID)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing == nil {
		if err := orgs.CreateOrganization(ctx, &orgdomain.Org{ID: *orgID, Name: *orgName, CreatedAt: now}); err != nil {
			log.Fatalf("create org: %v", err)
		}
		log.Printf("created organization %s", *orgID)
	}

	m, err := memberships.GetMembershipByUserAndOrg(ctx, *ownerID, *orgID)
	if err != nil {
		log.Fatalf("membership check: %v", err)
	}
	if m == nil {
		if err := memberships.CreateMembership(ctx, &membershipdomain.Membership{
			ID:        uuid.New().String(),
			UserID:    *ownerID,
			OrgID:     *orgID,
			Role:      membershipdomain.RoleOwner,
			CreatedAt: now,
		}); err != nil {
			log.Fatalf("create membership: %v", err)
		}
		log.Printf("added %s as owner", *ownerID)
	}

	if err := orgs.UpsertConnectionSettings(ctx, &orgdomain.ConnectionSettings{
		OrgID:           *orgID,
		TenantBaseURL:   *tenantURL,
		TenantPublicKey: *tenantPublicKey,
		UpdatedAt:       now,
	}); err != nil {
		log.Fatalf("upsert connection settings: %v", err)
	}

	envelope, err := vault.Seal(dedicatedKey)
	if err != nil {
		log.Fatalf("encrypt dedicated key: %v", err)
	}
	if err := orgs.SetEncryptedDedicatedKey(ctx, *orgID, envelope); err != nil {
		log.Fatalf("store dedicated key: %v", err)
	}

	if *policyFile != "" {
		rules, err := os.ReadFile(*policyFile)
		if err != nil {
			log.Fatalf("read policy: %v", err)
		}
		if err := policyrepo.NewPostgresRepository(pool).Create(ctx, &policydomain.Policy{
			ID:        uuid.New().String(),
			OrgID:     *orgID,
			Rules:     string(rules),
			Enabled:   true,
			CreatedAt: now,
		}); err != nil {
			log.Fatalf("create policy: %v", err)
		}
	}

	log.Println("Seed completed successfully.")
	fmt.Printf("Org %s ready; dedicated key sealed with key %s\n", *orgID, vault.Fingerprint())
}
