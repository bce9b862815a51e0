package application

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/sitepanel/internal/domain/model"
	"github.com/ericfisherdev/sitepanel/internal/domain/port/driven"
)

// Service tier thresholds on the total value of active contracts.
const (
	GuardianTierMinimum = 250000.0
	AssureTierMinimum   = 100000.0
)

// containMinLen is the cleaned-name length both names must exceed before
// containment counts as a contract match.
const containMinLen = 10

// noiseCustomerNames are continuation rows of the contracts report that
// carry no customer.
var noiseCustomerNames = map[string]bool{
	"SMA Included": true,
	"UNL RS":       true,
	"Monthly":      true,
	"Quarterly":    true,
	"Weekly":       true,
}

// ImportSummary reports what an import did (or would do, for a dry run).
type ImportSummary struct {
	DryRun             bool                      `json:"dry_run"`
	Customers          int                       `json:"customers"`
	Created            int                       `json:"created"`
	Updated            int                       `json:"updated"`
	Unchanged          int                       `json:"unchanged"`
	Contracts          int                       `json:"contracts"`
	ActiveContracts    int                       `json:"active_contracts"`
	MatchedContracts   int                       `json:"matched_contracts"`
	StoredContracts    int                       `json:"stored_contracts"`
	TotalContractValue float64                   `json:"total_contract_value"`
	Tiers              map[model.ServiceTier]int `json:"tiers"`
	Unmatched          []model.Contract          `json:"unmatched"`
}

// ImportService loads SimPro customer and contract exports, links contracts
// to customers by cleaned company name and upserts customers by their
// legacy SimPro ID.
type ImportService struct {
	store     driven.CustomerStore
	contracts driven.ContractStore
	changes   *ChangeSetCalculator
	logger  *slog.Logger
	newID   func() string
}

// NewImportService creates an ImportService.
func NewImportService(store driven.CustomerStore, logger *slog.Logger) *ImportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImportService{
		store:   store,
		changes: NewCustomerChangeSetCalculator(),
		logger:  logger,
		newID:   uuid.NewString,
	}
}

// WithContracts makes non-dry-run imports keep every matched contract in cs.
func (s *ImportService) WithContracts(cs driven.ContractStore) *ImportService {
	s.contracts = cs
	return s
}

// ParseContractValue parses a currency string such as "$12,500.00".
// Unparseable values are 0.
func ParseContractValue(s string) float64 {
	cleaned := strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(s))
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return v
}

// ParseContractDate converts MM/DD/YYYY or YYYY-MM-DD to YYYY-MM-DD.
// Unparseable dates are "".
func ParseContractDate(s string) string {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"01/02/2006", "1/2/2006", time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(time.DateOnly)
		}
	}
	return ""
}

// DetermineServiceTier maps the total value of active contracts to a tier.
func DetermineServiceTier(total float64) model.ServiceTier {
	switch {
	case total >= GuardianTierMinimum:
		return model.ServiceTierGuardian
	case total >= AssureTierMinimum:
		return model.ServiceTierAssure
	default:
		return model.ServiceTierCore
	}
}

// customerIndex resolves contract customer names to legacy customer IDs.
type customerIndex struct {
	byName map[string]string
	names  []string
}

func newCustomerIndex(customers []model.Record) *customerIndex {
	ix := &customerIndex{byName: make(map[string]string, len(customers))}
	for _, c := range customers {
		ix.byName[c.String(model.FieldCompanyNameCleaned)] = c.String(model.FieldLegacyCustomerID)
	}
	for name := range ix.byName {
		ix.names = append(ix.names, name)
	}
	sort.Strings(ix.names)
	return ix
}

// match tries an exact cleaned-name match, then containment between long
// names, then equality once legal suffixes are stripped.
func (ix *customerIndex) match(customerName string) string {
	cleaned := CleanCompanyName(customerName)
	if id, ok := ix.byName[cleaned]; ok {
		return id
	}

	stripped := stripLegalSuffixes(cleaned)
	for _, stored := range ix.names {
		if len(cleaned) > containMinLen && len(stored) > containMinLen &&
			(strings.Contains(stored, cleaned) || strings.Contains(cleaned, stored)) {
			return ix.byName[stored]
		}
		if s := stripLegalSuffixes(stored); stripped != "" && s != "" && s == stripped {
			return ix.byName[stored]
		}
	}
	return ""
}

// csvTable is a CSV file addressed by header name.
type csvTable struct {
	header map[string]int
	rows   [][]string
}

func readCSVTable(r io.Reader) (*csvTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("missing header row")
	}

	t := &csvTable{header: make(map[string]int), rows: records[1:]}
	for i, h := range records[0] {
		t.header[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	return t, nil
}

func (t *csvTable) get(row []string, column string) string {
	i, ok := t.header[column]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// ParseCustomersCSV reads a SimPro customer export. Rows without an ID or
// a name are skipped.
func ParseCustomersCSV(r io.Reader) ([]model.Record, error) {
	t, err := readCSVTable(r)
	if err != nil {
		return nil, fmt.Errorf("read customers csv: %w", err)
	}

	var out []model.Record
	for _, row := range t.rows {
		id := t.get(row, "Customer ID")
		name := t.get(row, "Customer")
		if id == "" || name == "" {
			continue
		}
		out = append(out, model.Record{
			string(model.FieldLegacyCustomerID):    id,
			string(model.FieldCompanyName):         name,
			string(model.FieldCompanyNameCleaned):  CleanCompanyName(name),
			string(model.FieldPrimaryContactEmail): strings.ToLower(t.get(row, "Email")),
			string(model.FieldMailingAddress):      t.get(row, "Mailing Address"),
			string(model.FieldMailingCity):         t.get(row, "Mailing City"),
			string(model.FieldMailingState):        t.get(row, "Mailing State"),
			string(model.FieldMailingZip):          t.get(row, "Mailing ZIP Code"),
			string(model.FieldLaborTaxCode):        t.get(row, "Labor Tax Code"),
			string(model.FieldPartTaxCode):         t.get(row, "Part Tax Code"),
			string(model.FieldIsContractCustomer):  strings.EqualFold(t.get(row, "Contract Customer"), "yes"),
		})
	}
	return out, nil
}

// ParseContractsCSV reads a SimPro contracts report. The first line is the
// report's criteria banner and is skipped, as are continuation rows.
func ParseContractsCSV(r io.Reader, newID func() string) ([]model.Contract, error) {
	br := bufio.NewReader(r)
	if _, err := br.ReadString('\n'); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read contracts banner: %w", err)
	}

	t, err := readCSVTable(br)
	if err != nil {
		return nil, fmt.Errorf("read contracts csv: %w", err)
	}

	var out []model.Contract
	for _, row := range t.rows {
		customer := t.get(row, "Customer")
		name := t.get(row, "Contract Name")
		if customer == "" || name == "" || isNoiseCustomer(customer) {
			continue
		}

		status := model.ContractStatusExpired
		if strings.EqualFold(t.get(row, "Status"), "active") {
			status = model.ContractStatusActive
		}

		out = append(out, model.Contract{
			ID:           newID(),
			CustomerName: customer,
			Name:         name,
			Number:       t.get(row, "Contract No."),
			Value:        ParseContractValue(t.get(row, "Value")),
			Status:       status,
			StartDate:    ParseContractDate(t.get(row, "Start Date")),
			EndDate:      ParseContractDate(t.get(row, "End Date")),
			Email:        strings.ToLower(t.get(row, "Email")),
			Notes:        t.get(row, "Notes"),
		})
	}
	return out, nil
}

func isNoiseCustomer(name string) bool {
	if noiseCustomerNames[name] || strings.Contains(name, "Selected Criteria") {
		return true
	}
	_, err := strconv.ParseUint(name, 10, 64)
	return err == nil
}

// Import parses both exports, aggregates active contracts onto their
// customers and upserts every customer. With dryRun nothing is written.
func (s *ImportService) Import(ctx context.Context, customersCSV, contractsCSV io.Reader, dryRun bool) (ImportSummary, error) {
	customers, err := ParseCustomersCSV(customersCSV)
	if err != nil {
		return ImportSummary{}, err
	}

	var contracts []model.Contract
	if contractsCSV != nil {
		contracts, err = ParseContractsCSV(contractsCSV, s.newID)
		if err != nil {
			return ImportSummary{}, err
		}
	}

	summary := ImportSummary{
		DryRun:    dryRun,
		Customers: len(customers),
		Contracts: len(contracts),
		Tiers:     map[model.ServiceTier]int{},
		Unmatched: []model.Contract{},
	}

	byLegacyID := make(map[string]model.Record, len(customers))
	for _, c := range customers {
		c.Set(model.FieldHasActiveContracts, false)
		c.Set(model.FieldActiveContractCount, 0)
		c.Set(model.FieldTotalContractValue, 0.0)
		byLegacyID[c.String(model.FieldLegacyCustomerID)] = c
	}

	index := newCustomerIndex(customers)
	for i := range contracts {
		contract := &contracts[i]
		if contract.Status == model.ContractStatusActive {
			summary.ActiveContracts++
		}

		contract.MatchedCustomerID = index.match(contract.CustomerName)
		if contract.MatchedCustomerID == "" {
			summary.Unmatched = append(summary.Unmatched, *contract)
			continue
		}
		summary.MatchedContracts++
		applyContract(byLegacyID[contract.MatchedCustomerID], *contract)
	}

	for _, c := range customers {
		total, _ := c[string(model.FieldTotalContractValue)].(float64)
		tier := DetermineServiceTier(total)
		c.Set(model.FieldServiceTier, string(tier))
		summary.Tiers[tier]++
		summary.TotalContractValue += total
	}

	storeIDs := make(map[string]string, len(customers))
	for _, c := range customers {
		outcome, id, err := s.upsert(ctx, c, dryRun)
		if err != nil {
			return summary, err
		}
		storeIDs[c.String(model.FieldLegacyCustomerID)] = id
		switch outcome {
		case OutcomeCreated:
			summary.Created++
		case OutcomeUpdated:
			summary.Updated++
		default:
			summary.Unchanged++
		}
	}

	if !dryRun && s.contracts != nil {
		for _, contract := range contracts {
			id := storeIDs[contract.MatchedCustomerID]
			if contract.MatchedCustomerID == "" || id == "" {
				continue
			}
			if err := s.contracts.Upsert(ctx, id, contract); err != nil {
				return summary, fmt.Errorf("import contract %q of %s: %w", contract.Number, contract.MatchedCustomerID, err)
			}
			summary.StoredContracts++
		}
	}

	s.logger.Info("simpro import finished",
		"dry_run", dryRun,
		"customers", summary.Customers,
		"created", summary.Created,
		"updated", summary.Updated,
		"contracts", summary.Contracts,
		"stored_contracts", summary.StoredContracts,
		"unmatched", len(summary.Unmatched),
	)
	return summary, nil
}

// applyContract folds one matched contract into its customer's totals.
func applyContract(customer model.Record, contract model.Contract) {
	if contract.Status != model.ContractStatusActive {
		if customer.String(model.FieldContractStatus) == "" {
			customer.Set(model.FieldContractStatus, string(model.ContractStatusExpired))
		}
		return
	}

	count, _ := customer[string(model.FieldActiveContractCount)].(int)
	total, _ := customer[string(model.FieldTotalContractValue)].(float64)

	customer.Set(model.FieldHasActiveContracts, true)
	customer.Set(model.FieldActiveContractCount, count+1)
	customer.Set(model.FieldTotalContractValue, total+contract.Value)
	customer.Set(model.FieldContractStatus, string(model.ContractStatusActive))
	if contract.Number != "" {
		customer.Set(model.FieldContractNumber, contract.Number)
	}
	if contract.Email != "" {
		customer.Set(model.FieldLatestContractEmail, contract.Email)
	}
}

// upsert creates or patches one imported customer and returns its store ID,
// which is empty for a customer a dry run would create.
func (s *ImportService) upsert(ctx context.Context, imported model.Record, dryRun bool) (SubmitOutcome, string, error) {
	legacyID := imported.String(model.FieldLegacyCustomerID)

	existing, err := s.store.GetByLegacyID(ctx, legacyID)
	if errors.Is(err, driven.ErrCustomerNotFound) {
		if dryRun {
			return OutcomeCreated, "", nil
		}
		created, err := s.store.Create(ctx, imported)
		if err != nil {
			return "", "", fmt.Errorf("import customer %s: %w", legacyID, err)
		}
		return OutcomeCreated, created.ID(), nil
	}
	if err != nil {
		return "", "", fmt.Errorf("import customer %s: %w", legacyID, err)
	}

	candidate := existing.Clone()
	candidate.Merge(imported)
	changes := s.changes.Compute(existing, candidate)
	if len(changes) == 0 {
		return OutcomeNoChanges, existing.ID(), nil
	}

	if !dryRun {
		patch := BuildPatch(candidate, changes)
		if _, ok := patch.Get(model.FieldCompanyName); ok {
			patch.Set(model.FieldCompanyNameCleaned, imported.String(model.FieldCompanyNameCleaned))
		}
		if _, err := s.store.Update(ctx, existing.ID(), patch); err != nil {
			return "", "", fmt.Errorf("import customer %s: %w", legacyID, err)
		}
	}
	return OutcomeUpdated, existing.ID(), nil
}
