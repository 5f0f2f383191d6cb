package schema_test

import (
	"context"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/planora/core-service/internal/schema"
)

// Live introspection needs information_schema, which SQLite cannot fake.
// These specs run only against a migrated Postgres database.
var _ = Describe("Introspector", func() {
	var (
		db           *sqlx.DB
		introspector *schema.Introspector
		ctx          context.Context
		cancel       context.CancelFunc
	)

	BeforeEach(func() {
		dsn := os.Getenv("TEST_DATABASE_URL")
		if dsn == "" {
			Skip("TEST_DATABASE_URL not set, skipping live introspection specs")
		}

		var err error
		db, err = sqlx.Connect("pgx", dsn)
		Expect(err).ToNot(HaveOccurred())

		introspector = schema.NewIntrospector(db)
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	})

	AfterEach(func() {
		if cancel != nil {
			cancel()
		}
		if db != nil {
			Expect(db.Close()).To(Succeed())
		}
	})

	Describe("Tables", func() {
		It("should list every critical table", func() {
			tables, err := introspector.Tables(ctx)

			Expect(err).ToNot(HaveOccurred())
			for _, want := range schema.CriticalTables {
				Expect(tables).To(ContainElement(want))
			}
		})
	})

	Describe("Table", func() {
		It("should report columns and constraints for payments", func() {
			meta, err := introspector.Table(ctx, "payments")

			Expect(err).ToNot(HaveOccurred())
			Expect(meta.Columns).To(HaveKey("payment_service_id"))
			Expect(meta.Columns["payment_service_id"].Nullable).To(BeFalse())
			Expect(meta.Constraints.Primary).To(ContainElement("id"))
			Expect(meta.Constraints.Unique).To(ContainElement("payment_service_id"))
		})

		It("should report the foreign key from payments to payment_webhooks", func() {
			meta, err := introspector.Table(ctx, "payments")

			Expect(err).ToNot(HaveOccurred())
			Expect(meta.Constraints.Foreign).To(ContainElement(schema.ForeignKey{
				Column:        "webhook_id",
				ForeignTable:  "payment_webhooks",
				ForeignColumn: "id",
			}))
		})

		It("should fail for a table that does not exist", func() {
			_, err := introspector.Table(ctx, "no_such_table")

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Snapshot", func() {
		It("should introspect every critical table and accept generated fixtures", func() {
			snapshot, err := introspector.Snapshot(ctx, schema.CriticalTables)
			Expect(err).ToNot(HaveOccurred())

			factory := schema.NewFixtureFactory()
			for _, name := range schema.CriticalTables {
				meta := snapshot[name]
				Expect(meta).ToNot(BeNil())
				Expect(schema.ValidateConstraints(meta)).To(Succeed())

				row, err := factory.GenerateRow(meta)
				Expect(err).ToNot(HaveOccurred(), "table %s", name)
				Expect(factory.ValidateRow(meta, row)).To(Succeed(), "table %s", name)
			}
		})
	})
})
