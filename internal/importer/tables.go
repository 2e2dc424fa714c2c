package importer

import (
	"fmt"
	"strings"
)

// row exposes one export record by column name.
type row struct {
	rec []string
	idx map[string]int
}

func (r row) get(col string) string {
	i, ok := r.idx[col]
	if !ok || i >= len(r.rec) {
		return ""
	}
	return r.rec[i]
}

// tableDef maps one export dataset onto its normalized relation.
type tableDef struct {
	table   string
	columns []string
	build   func(r row) []any
}

// insertSQL renders the parameterized INSERT for this table.
func (d tableDef) insertSQL() string {
	placeholders := make([]string, len(d.columns))
	for i := range d.columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.table,
		strings.Join(d.columns, ", "),
		strings.Join(placeholders, ", "),
	)
}

// tableDefs maps export dataset names to their relation definitions.
// Keys line up with Source.ImportOrder so inserts never violate FK order.
var tableDefs = map[string]tableDef{
	"notice": {
		table: "notices",
		columns: []string{
			"notice_identifier", "notice_version", "procedure_identifier",
			"procedure_legal_basis", "form_type", "notice_type", "publication_date",
		},
		build: func(r row) []any {
			return []any{
				nullString(r.get("noticeIdentifier"), 100), nullString(r.get("noticeVersion"), 10),
				nullString(r.get("procedureIdentifier"), 100), nullString(r.get("procedureLegalBasis"), 50),
				nullString(r.get("formType"), 50), nullString(r.get("noticeType"), 50),
				nullTime(r.get("publicationDate")),
			}
		},
	},
	"procedure": {
		table: "procedures",
		columns: []string{
			"notice_identifier", "notice_version", "cross_border_law",
			"procedure_type", "procedure_features", "procedure_accelerated",
			"lots_max_allowed", "lots_all_required", "lots_max_awarded",
		},
		build: func(r row) []any {
			return []any{
				nullString(r.get("noticeIdentifier"), 100), nullString(r.get("noticeVersion"), 10),
				nullString(r.get("crossBorderLaw"), 100), nullString(r.get("procedureType"), 50),
				nullString(r.get("procedureFeatures"), 0), nullBool(r.get("procedureAccelerated")),
				nullInt(r.get("lotsMaxAllowed")), nullBool(r.get("lotsAllRequired")),
				nullInt(r.get("lotsMaxAwarded")),
			}
		},
	},
	"lot": {
		table:   "lots",
		columns: []string{"notice_identifier", "notice_version", "lot_identifier"},
		build: func(r row) []any {
			return []any{
				nullString(r.get("noticeIdentifier"), 100), nullString(r.get("noticeVersion"), 10),
				nullString(r.get("lotIdentifier"), 50),
			}
		},
	},
	"purpose": {
		table: "purposes",
		columns: []string{
			"notice_identifier", "notice_version", "lot_identifier",
			"internal_identifier", "main_nature", "additional_nature",
			"title", "estimated_value", "estimated_value_currency", "description",
		},
		build: func(r row) []any {
			return []any{
				nullString(r.get("noticeIdentifier"), 100), nullString(r.get("noticeVersion"), 10),
				nullString(r.get("lotIdentifier"), 50), nullString(r.get("internalIdentifier"), 100),
				nullString(r.get("mainNature"), 20), nullString(r.get("additionalNature"), 50),
				nullString(r.get("title"), 0), nullDecimal(r.get("estimatedValue")),
				nullString(r.get("estimatedValueCurrency"), 3), nullString(r.get("description"), 0),
			}
		},
	},
	"classification": {
		table: "classifications",
		columns: []string{
			"notice_identifier", "notice_version", "lot_identifier",
			"classification_type", "main_classification_code",
			"additional_classification_codes", "options",
		},
		build: func(r row) []any {
			return []any{
				nullString(r.get("noticeIdentifier"), 100), nullString(r.get("noticeVersion"), 10),
				nullString(r.get("lotIdentifier"), 50), nullString(r.get("classificationType"), 20),
				nullString(r.get("mainClassificationCode"), 20),
				nullString(r.get("additionalClassificationCodes"), 0), nullString(r.get("options"), 0),
			}
		},
	},
	"organisation": {
		table: "organisations",
		columns: []string{
			"notice_identifier", "notice_version", "organisation_name",
			"organisation_identifier", "organisation_city", "organisation_post_code",
			"organisation_country_subdivision", "organisation_country_code",
			"organisation_internet_address", "organisation_natural_person",
			"organisation_role", "buyer_profile_url", "buyer_legal_type",
			"buyer_contracting_entity", "winner_size", "winner_owner_nationality",
			"winner_listed",
		},
		build: func(r row) []any {
			return []any{
				nullString(r.get("noticeIdentifier"), 100), nullString(r.get("noticeVersion"), 10),
				nullString(r.get("organisationName"), 500), nullString(r.get("organisationIdentifier"), 200),
				nullString(r.get("organisationCity"), 200), nullString(r.get("organisationPostCode"), 20),
				nullString(r.get("organisationCountrySubdivision"), 10),
				nullString(r.get("organisationCountryCode"), 3),
				nullString(r.get("organisationInternetAddress"), 500),
				nullBool(r.get("organisationNaturalPerson")),
				nullString(r.get("organisationRole"), 50), nullString(r.get("buyerProfileURL"), 500),
				nullString(r.get("buyerLegalType"), 50), nullBool(r.get("buyerContractingEntity")),
				nullString(r.get("winnerSize"), 20), nullString(r.get("winnerOwnerNationality"), 3),
				nullBool(r.get("winnerListed")),
			}
		},
	},
	"placeOfPerformance": {
		table: "places_of_performance",
		columns: []string{
			"notice_identifier", "notice_version", "lot_identifier",
			"street", "town", "post_code", "country_subdivision", "country_code",
		},
		build: func(r row) []any {
			return []any{
				nullString(r.get("noticeIdentifier"), 100), nullString(r.get("noticeVersion"), 10),
				nullString(r.get("lotIdentifier"), 50), nullString(r.get("street"), 500),
				nullString(r.get("town"), 200), nullString(r.get("postCode"), 20),
				nullString(r.get("countrySubdivision"), 10), nullString(r.get("countryCode"), 3),
			}
		},
	},
	"submissionTerms": {
		table: "submission_terms",
		columns: []string{
			"notice_identifier", "notice_version", "lot_identifier",
			"tender_validity_deadline", "tender_validity_deadline_unit",
			"guarantee_required", "public_opening_date",
		},
		build: func(r row) []any {
			return []any{
				nullString(r.get("noticeIdentifier"), 100), nullString(r.get("noticeVersion"), 10),
				nullString(r.get("lotIdentifier"), 50), nullDecimal(r.get("tenderValidityDeadline")),
				nullString(r.get("tenderValidityDeadlineUnit"), 20),
				nullBool(r.get("guaranteeRequired")), nullTime(r.get("publicOpeningDate")),
			}
		},
	},
	"tender": {
		table: "tenders",
		columns: []string{
			"notice_identifier", "notice_version", "tender_identifier",
			"lot_identifier", "tender_value", "tender_value_currency",
			"tender_payment_value", "tender_payment_value_currency",
			"tender_penalties", "tender_penalties_currency", "tender_rank",
			"concession_revenue_user", "concession_revenue_user_currency",
			"concession_revenue_buyer", "concession_revenue_buyer_currency",
			"country_origin",
		},
		build: func(r row) []any {
			return []any{
				nullString(r.get("noticeIdentifier"), 100), nullString(r.get("noticeVersion"), 10),
				nullString(r.get("tenderIdentifier"), 50), nullString(r.get("lotIdentifier"), 50),
				nullDecimal(r.get("tenderValue")), nullString(r.get("tenderValueCurrency"), 3),
				nullDecimal(r.get("tenderPaymentValue")), nullString(r.get("tenderPaymentValueCurrency"), 3),
				nullDecimal(r.get("tenderPenalties")), nullString(r.get("tenderPenaltiesCurrency"), 3),
				nullInt(r.get("tenderRank")),
				nullDecimal(r.get("concessionRevenueUser")), nullString(r.get("concessionRevenueUserCurrency"), 3),
				nullDecimal(r.get("concessionRevenueBuyer")), nullString(r.get("concessionRevenueBuyerCurrency"), 3),
				nullString(r.get("countryOrigin"), 3),
			}
		},
	},
}
