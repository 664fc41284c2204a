// Command fieldsync-demo wires the engine end to end against an in-memory
// SQLite database and a stub transport, then runs a create push and prints
// the outcome.
package main

import (
	"context"
	"fmt"
	"os"

	fieldsync "github.com/c0deZ3R0/go-field-sync"
	"github.com/c0deZ3R0/go-field-sync/config"
	"github.com/c0deZ3R0/go-field-sync/ledger"
	"github.com/c0deZ3R0/go-field-sync/logging"
	"github.com/c0deZ3R0/go-field-sync/mapping"
	"github.com/c0deZ3R0/go-field-sync/storage/sqlite"
	"github.com/c0deZ3R0/go-field-sync/transform"
)

type echoTransport struct{}

func (echoTransport) Create(_ context.Context, remoteObject string, params map[string]any, keys, _ []transform.KeyDescriptor) (string, error) {
	fmt.Printf("remote create %s: params=%v keys=%v\n", remoteObject, params, keys)
	return "remote-0001", nil
}

func (echoTransport) Update(_ context.Context, remoteObject, remoteID string, params map[string]any) error {
	fmt.Printf("remote update %s/%s: %v\n", remoteObject, remoteID, params)
	return nil
}

func (echoTransport) Delete(_ context.Context, remoteObject, remoteID string) error {
	fmt.Printf("remote delete %s/%s\n", remoteObject, remoteID)
	return nil
}

func (echoTransport) SupportsInlineKeys() bool { return false }

type echoLocalStore struct{}

func (echoLocalStore) Create(_ context.Context, localType string, pulls []transform.PullValue, _ bool) (string, error) {
	fmt.Printf("local create %s: %d fields\n", localType, len(pulls))
	return "local-0001", nil
}

func (echoLocalStore) Apply(_ context.Context, localType, localID string, pulls []transform.PullValue, _ bool) error {
	fmt.Printf("local apply %s/%s: %d fields\n", localType, localID, len(pulls))
	return nil
}

func (echoLocalStore) Delete(_ context.Context, localType, localID string) error {
	fmt.Printf("local delete %s/%s\n", localType, localID)
	return nil
}

func (echoLocalStore) FlagMissingRequired(_ context.Context, localType, localID string, fields []string) error {
	fmt.Printf("local flag %s/%s missing required: %v\n", localType, localID, fields)
	return nil
}

func main() {
	ctx := context.Background()

	cfg, err := config.LoadEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(logging.Config{Level: cfg.Logging.Level, Format: "text"})

	store, err := sqlite.NewWithDataSource(":memory:")
	if err != nil {
		fmt.Fprintln(os.Stderr, "sqlite:", err)
		os.Exit(1)
	}
	defer store.Close()

	contactMapping := &mapping.FieldMapping{
		ID:           "contacts-default",
		Label:        "Contacts",
		LocalObject:  "contacts",
		RemoteObject: "Contact",
		Triggers:     mapping.AllTriggers(),
		Rules: []mapping.FieldRule{
			{
				Local:     mapping.LocalField{Name: "email"},
				Remote:    mapping.RemoteField{Name: "Email", Kind: mapping.KindText, Updateable: true, Creatable: true, Nillable: false},
				IsKey:     true,
				Direction: mapping.Bidirectional,
			},
			{
				Local:     mapping.LocalField{Name: "last_name"},
				Remote:    mapping.RemoteField{Name: "LastName", Kind: mapping.KindText, Updateable: true, Creatable: true, Nillable: true},
				Direction: mapping.Bidirectional,
			},
			{
				Local:     mapping.LocalField{Name: "interests"},
				Remote:    mapping.RemoteField{Name: "Interests", Kind: mapping.KindMultiValueText, Updateable: true, Creatable: true, Nillable: true},
				Direction: mapping.Bidirectional,
			},
		},
	}
	if err := store.SaveMapping(ctx, contactMapping); err != nil {
		fmt.Fprintln(os.Stderr, "save mapping:", err)
		os.Exit(1)
	}

	catalog, err := mapping.LoadCatalog(ctx, store)
	if err != nil {
		fmt.Fprintln(os.Stderr, "catalog:", err)
		os.Exit(1)
	}

	diag := logging.NewSlogDiagnostics(logger)
	coordinator, err := fieldsync.NewCoordinator(fieldsync.CoordinatorConfig{
		Catalog:     catalog,
		Transformer: transform.New(cfg),
		Ledger:      ledger.New(store, diag),
		Transport:   echoTransport{},
		LocalStore:  echoLocalStore{},
		Diagnostics: diag,
		Logger:      logger,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "coordinator:", err)
		os.Exit(1)
	}

	result, err := coordinator.HandleEvent(ctx, fieldsync.Event{
		Trigger:   mapping.LocalCreate,
		LocalType: "contacts",
		LocalID:   "42",
		Record: transform.Record{
			"email":     "ada@example.com",
			"last_name": "Lovelace",
			"interests": []string{"mathematics", "engines"},
		},
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "handle event:", err)
		os.Exit(1)
	}

	fmt.Printf("pushed=%d pulled=%d skipped=%d errors=%d\n",
		result.MappingsPushed, result.MappingsPulled, result.Skipped, len(result.Errors))
}
