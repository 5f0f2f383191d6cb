package schema_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/planora/core-service/internal/schema"
)

func notNull(dataType string) schema.ColumnMeta {
	return schema.ColumnMeta{Type: dataType, Nullable: false}
}

func nullable(dataType string) schema.ColumnMeta {
	return schema.ColumnMeta{Type: dataType, Nullable: true}
}

// paymentsMeta mirrors what live introspection returns for the payments
// table, so fixture behavior can be specified without a database.
func paymentsMeta() *schema.TableMeta {
	return &schema.TableMeta{
		Name: "payments",
		Columns: map[string]schema.ColumnMeta{
			"id":                 notNull("bigint"),
			"payment_service_id": notNull("character varying"),
			"user_id":            nullable("bigint"),
			"event_id":           nullable("bigint"),
			"amount":             notNull("bigint"),
			"currency":           notNull("character varying"),
			"gateway":            nullable("character varying"),
			"status":             notNull("character varying"),
			"error_message":      nullable("text"),
			"webhook_id":         nullable("bigint"),
			"completed_at":       nullable("timestamp with time zone"),
			"created_at":         notNull("timestamp with time zone"),
		},
		Constraints: schema.Constraints{
			Primary: []string{"id"},
			Unique:  []string{"payment_service_id"},
			Foreign: []schema.ForeignKey{
				{Column: "webhook_id", ForeignTable: "payment_webhooks", ForeignColumn: "id"},
			},
		},
	}
}

var _ = Describe("FixtureFactory", func() {
	var factory *schema.FixtureFactory

	BeforeEach(func() {
		factory = schema.NewFixtureFactory()
	})

	Describe("GenerateRow", func() {
		It("should produce a row that passes its own validation", func() {
			meta := paymentsMeta()

			row, err := factory.GenerateRow(meta)

			Expect(err).ToNot(HaveOccurred())
			Expect(factory.ValidateRow(meta, row)).To(Succeed())
		})

		It("should leave auto-increment primary keys to the database", func() {
			row, err := factory.GenerateRow(paymentsMeta())

			Expect(err).ToNot(HaveOccurred())
			Expect(row).ToNot(HaveKey("id"))
		})

		It("should apply domain overrides for constrained columns", func() {
			row, err := factory.GenerateRow(paymentsMeta())

			Expect(err).ToNot(HaveOccurred())
			Expect(row["status"]).To(Equal("pending"))
			Expect(row["currency"]).To(Equal("XOF"))
			Expect(row["gateway"]).To(Equal("stripe"))
		})

		It("should honor caller-registered overrides", func() {
			factory.Override("payments.gateway", func() interface{} { return "orange_money" })

			row, err := factory.GenerateRow(paymentsMeta())

			Expect(err).ToNot(HaveOccurred())
			Expect(row["gateway"]).To(Equal("orange_money"))
		})

		It("should generate unique emails across rows", func() {
			meta := &schema.TableMeta{
				Name: "users",
				Columns: map[string]schema.ColumnMeta{
					"email": notNull("character varying"),
				},
			}

			first, err := factory.GenerateRow(meta)
			Expect(err).ToNot(HaveOccurred())
			second, err := factory.GenerateRow(meta)
			Expect(err).ToNot(HaveOccurred())

			Expect(first["email"]).ToNot(Equal(second["email"]))
		})

		It("should cover every recognized scalar type", func() {
			meta := &schema.TableMeta{
				Name: "kitchen_sink",
				Columns: map[string]schema.ColumnMeta{
					"c_int":       notNull("integer"),
					"c_bigint":    notNull("bigint"),
					"c_smallint":  notNull("smallint"),
					"c_numeric":   notNull("numeric"),
					"c_real":      notNull("real"),
					"c_double":    notNull("double precision"),
					"c_varchar":   notNull("character varying"),
					"c_char":      notNull("character"),
					"c_text":      notNull("text"),
					"c_ts":        notNull("timestamp without time zone"),
					"c_tstz":      notNull("timestamp with time zone"),
					"c_date":      notNull("date"),
					"c_time":      notNull("time without time zone"),
					"c_bool":      notNull("boolean"),
					"c_uuid":      notNull("uuid"),
					"c_json":      notNull("json"),
					"c_jsonb":     notNull("jsonb"),
					"c_int_array": {Type: "ARRAY", UDTName: "_int8"},
					"c_txt_array": {Type: "ARRAY", UDTName: "_varchar"},
				},
			}

			row, err := factory.GenerateRow(meta)

			Expect(err).ToNot(HaveOccurred())
			Expect(factory.ValidateRow(meta, row)).To(Succeed())
			Expect(row["c_bool"]).To(BeTrue())
			Expect(row["c_ts"]).To(BeAssignableToTypeOf(time.Time{}))
			Expect(row["c_int_array"]).To(HaveLen(1))
		})

		It("should reject an unrecognized column type", func() {
			meta := &schema.TableMeta{
				Name: "odd",
				Columns: map[string]schema.ColumnMeta{
					"location": notNull("geography"),
				},
			}

			_, err := factory.GenerateRow(meta)

			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("geography"))
		})

		It("should reject an array of an unrecognized element type", func() {
			meta := &schema.TableMeta{
				Name: "odd",
				Columns: map[string]schema.ColumnMeta{
					"shapes": {Type: "ARRAY", UDTName: "_geometry"},
				},
			}

			_, err := factory.GenerateRow(meta)

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("ValidateRow", func() {
		var meta *schema.TableMeta

		BeforeEach(func() {
			meta = paymentsMeta()
		})

		It("should reject a row with an unknown column", func() {
			row, err := factory.GenerateRow(meta)
			Expect(err).ToNot(HaveOccurred())
			row["legacy_flag"] = true

			err = factory.ValidateRow(meta, row)

			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("legacy_flag"))
		})

		It("should reject a missing non-nullable column", func() {
			row, err := factory.GenerateRow(meta)
			Expect(err).ToNot(HaveOccurred())
			delete(row, "payment_service_id")

			Expect(factory.ValidateRow(meta, row)).To(HaveOccurred())
		})

		It("should accept a missing nullable column", func() {
			row, err := factory.GenerateRow(meta)
			Expect(err).ToNot(HaveOccurred())
			delete(row, "error_message")

			Expect(factory.ValidateRow(meta, row)).To(Succeed())
		})

		It("should reject a type mismatch", func() {
			row, err := factory.GenerateRow(meta)
			Expect(err).ToNot(HaveOccurred())
			row["amount"] = "not a number"

			err = factory.ValidateRow(meta, row)

			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("amount"))
		})

		It("should reject an invalid uuid string", func() {
			uuidMeta := &schema.TableMeta{
				Name: "tickets",
				Columns: map[string]schema.ColumnMeta{
					"code": notNull("uuid"),
				},
			}

			err := factory.ValidateRow(uuidMeta, map[string]interface{}{"code": "not-a-uuid"})

			Expect(err).To(HaveOccurred())
		})

		It("should reject malformed json payloads", func() {
			jsonMeta := &schema.TableMeta{
				Name: "payment_webhooks",
				Columns: map[string]schema.ColumnMeta{
					"raw_data": notNull("jsonb"),
				},
			}

			err := factory.ValidateRow(jsonMeta, map[string]interface{}{
				"raw_data": json.RawMessage(`{"truncated":`),
			})

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("ValidateConstraints", func() {
		It("should accept constraints that reference existing columns", func() {
			Expect(schema.ValidateConstraints(paymentsMeta())).To(Succeed())
		})

		It("should reject a primary key on a missing column", func() {
			meta := paymentsMeta()
			meta.Constraints.Primary = []string{"uuid"}

			Expect(schema.ValidateConstraints(meta)).To(HaveOccurred())
		})

		It("should reject a foreign key without a target", func() {
			meta := paymentsMeta()
			meta.Constraints.Foreign = []schema.ForeignKey{{Column: "webhook_id"}}

			Expect(schema.ValidateConstraints(meta)).To(HaveOccurred())
		})
	})

	Describe("IsRecognizedType", func() {
		It("should recognize scalar types case-insensitively", func() {
			Expect(schema.IsRecognizedType(schema.ColumnMeta{Type: "BIGINT"})).To(BeTrue())
			Expect(schema.IsRecognizedType(schema.ColumnMeta{Type: "Timestamp With Time Zone"})).To(BeTrue())
		})

		It("should recognize arrays by their udt prefix", func() {
			Expect(schema.IsRecognizedType(schema.ColumnMeta{Type: "ARRAY", UDTName: "_int8"})).To(BeTrue())
			Expect(schema.IsRecognizedType(schema.ColumnMeta{Type: "ARRAY", UDTName: "int8"})).To(BeFalse())
		})

		It("should not recognize exotic types", func() {
			Expect(schema.IsRecognizedType(schema.ColumnMeta{Type: "tsvector"})).To(BeFalse())
		})
	})

	Describe("generation and validation latency", func() {
		It("should generate rows well under the harness budget", func() {
			meta := paymentsMeta()
			const iterations = 100

			start := time.Now()
			for i := 0; i < iterations; i++ {
				_, err := factory.GenerateRow(meta)
				Expect(err).ToNot(HaveOccurred())
			}
			perRow := time.Since(start) / iterations

			Expect(perRow).To(BeNumerically("<", 100*time.Millisecond))
		})

		It("should validate rows well under the harness budget", func() {
			meta := paymentsMeta()
			row, err := factory.GenerateRow(meta)
			Expect(err).ToNot(HaveOccurred())
			const iterations = 100

			start := time.Now()
			for i := 0; i < iterations; i++ {
				Expect(factory.ValidateRow(meta, row)).To(Succeed())
			}
			perRow := time.Since(start) / iterations

			Expect(perRow).To(BeNumerically("<", 50*time.Millisecond))
		})
	})
})
