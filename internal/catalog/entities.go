// Package catalog defines the fixed set of NetSuite entities exposed as
// tools and the service that runs queries against them.
package catalog

import (
	"sort"

	q "github.com/michelgermain/netsuite-mcp/internal/query"
)

// Kind selects the backend path an entity is queried through.
type Kind int

const (
	SuiteQL Kind = iota
	Search
)

func (k Kind) String() string {
	if k == Search {
		return string(q.BackendSearch)
	}
	return string(q.BackendSuiteQL)
}

// Entity is one tool's complete configuration.
type Entity struct {
	Name        string
	Description string
	Kind        Kind
	Schema      *q.Schema

	// Statement is used when Kind is SuiteQL.
	Statement q.Statement
	// Search is used when Kind is Search.
	Search q.SearchDefinition

	// Hierarchy, when set, resolves parent links after fetching.
	Hierarchy *q.HierarchyFields
}

func suiteQL(table string) string {
	return "SELECT {{columns}} FROM " + table + " {{where}} {{order}}"
}

func byName(c q.Column) q.Order {
	return q.Order{Column: c.Name, SortOrder: q.Asc}
}

// Hierarchy fields for the account tree. The balance roll-up walks the raw
// ParentId links.
var accountHierarchy = q.HierarchyFields{ID: "Id", ParentID: "ParentId", Label: "AccountNumber", ParentLabel: "ParentNumber"}

var namedHierarchy = q.HierarchyFields{ID: "Id", ParentID: "ParentId", Label: "Name", ParentLabel: "ParentName"}

// Accounts is the chart of accounts.
var Accounts = Entity{
	Name:        "list_accounts",
	Description: "List general ledger accounts from the chart of accounts. Each account carries the number of its parent account.",
	Kind:        SuiteQL,
	Schema: q.MustSchema(
		q.Column{Name: "Id", Type: q.ID, SQL: "a.id"},
		q.Column{Name: "AccountNumber", Type: q.String, SQL: "a.acctnumber", Field: "acctnumber"},
		q.Column{Name: "Name", Type: q.String, SQL: "a.accountsearchdisplaynamecopy"},
		q.Column{Name: "FullName", Type: q.String, SQL: "a.fullname"},
		q.Column{Name: "Type", Type: q.String, SQL: "BUILTIN.DF(a.accttype)"},
		q.Column{Name: "Description", Type: q.String, SQL: "a.description"},
		q.Column{Name: "Currency", Type: q.String, SQL: "BUILTIN.DF(a.currency)"},
		q.Column{Name: "ParentId", Type: q.ID, SQL: "a.parent"},
		q.Column{Name: "Summary", Type: q.Boolean, SQL: "a.issummary"},
		q.Column{Name: "Inactive", Type: q.Boolean, SQL: "a.isinactive"},
		q.Column{Name: "Subsidiary", Type: q.ID, SQL: "a.subsidiary", FilterOnly: true},
	),
	Statement: q.Statement{
		Template:    suiteQL("account a"),
		DefaultSort: q.Order{Column: "AccountNumber", SortOrder: q.Asc},
	},
	Hierarchy: &accountHierarchy,
}

// Subsidiaries is the legal entity tree.
var Subsidiaries = Entity{
	Name:        "list_subsidiaries",
	Description: "List subsidiaries with the name of their parent subsidiary.",
	Kind:        SuiteQL,
	Schema: q.MustSchema(
		q.Column{Name: "Id", Type: q.ID, SQL: "s.id"},
		q.Column{Name: "Name", Type: q.String, SQL: "s.name"},
		q.Column{Name: "FullName", Type: q.String, SQL: "s.fullname"},
		q.Column{Name: "Country", Type: q.String, SQL: "s.country"},
		q.Column{Name: "Currency", Type: q.String, SQL: "BUILTIN.DF(s.currency)"},
		q.Column{Name: "ParentId", Type: q.ID, SQL: "s.parent"},
		q.Column{Name: "Elimination", Type: q.Boolean, SQL: "s.iselimination"},
		q.Column{Name: "Inactive", Type: q.Boolean, SQL: "s.isinactive"},
	),
	Statement: q.Statement{
		Template:    suiteQL("subsidiary s"),
		DefaultSort: q.Order{Column: "Name", SortOrder: q.Asc},
	},
	Hierarchy: &namedHierarchy,
}

// Customers lists customer records.
var Customers = Entity{
	Name:        "list_customers",
	Description: "List customers with contact details and primary subsidiary.",
	Kind:        SuiteQL,
	Schema: q.MustSchema(
		q.Column{Name: "Id", Type: q.ID, SQL: "c.id"},
		q.Column{Name: "EntityId", Type: q.String, SQL: "c.entityid"},
		q.Column{Name: "CompanyName", Type: q.String, SQL: "c.companyname"},
		q.Column{Name: "Email", Type: q.String, SQL: "c.email"},
		q.Column{Name: "Phone", Type: q.String, SQL: "c.phone"},
		q.Column{Name: "Subsidiary", Type: q.String, SQL: "BUILTIN.DF(c.subsidiary)"},
		q.Column{Name: "Currency", Type: q.String, SQL: "BUILTIN.DF(c.currency)"},
		q.Column{Name: "DateCreated", Type: q.Date, SQL: "c.datecreated"},
		q.Column{Name: "Inactive", Type: q.Boolean, SQL: "c.isinactive"},
		q.Column{Name: "SubsidiaryId", Type: q.ID, SQL: "c.subsidiary", FilterOnly: true},
	),
	Statement: q.Statement{
		Template:    suiteQL("customer c"),
		DefaultSort: q.Order{Column: "CompanyName", SortOrder: q.Asc},
	},
}

// Vendors lists vendor records.
var Vendors = Entity{
	Name:        "list_vendors",
	Description: "List vendors with contact details and primary subsidiary.",
	Kind:        SuiteQL,
	Schema: q.MustSchema(
		q.Column{Name: "Id", Type: q.ID, SQL: "v.id"},
		q.Column{Name: "EntityId", Type: q.String, SQL: "v.entityid"},
		q.Column{Name: "CompanyName", Type: q.String, SQL: "v.companyname"},
		q.Column{Name: "Email", Type: q.String, SQL: "v.email"},
		q.Column{Name: "Phone", Type: q.String, SQL: "v.phone"},
		q.Column{Name: "Subsidiary", Type: q.String, SQL: "BUILTIN.DF(v.subsidiary)"},
		q.Column{Name: "Currency", Type: q.String, SQL: "BUILTIN.DF(v.currency)"},
		q.Column{Name: "Is1099Eligible", Type: q.Boolean, SQL: "v.is1099eligible"},
		q.Column{Name: "Inactive", Type: q.Boolean, SQL: "v.isinactive"},
		q.Column{Name: "SubsidiaryId", Type: q.ID, SQL: "v.subsidiary", FilterOnly: true},
	),
	Statement: q.Statement{
		Template:    suiteQL("vendor v"),
		DefaultSort: q.Order{Column: "CompanyName", SortOrder: q.Asc},
	},
}

// Employees lists employee records.
var Employees = Entity{
	Name:        "list_employees",
	Description: "List employees with department and supervisor.",
	Kind:        SuiteQL,
	Schema: q.MustSchema(
		q.Column{Name: "Id", Type: q.ID, SQL: "e.id"},
		q.Column{Name: "EntityId", Type: q.String, SQL: "e.entityid"},
		q.Column{Name: "FirstName", Type: q.String, SQL: "e.firstname"},
		q.Column{Name: "LastName", Type: q.String, SQL: "e.lastname"},
		q.Column{Name: "Email", Type: q.String, SQL: "e.email"},
		q.Column{Name: "Title", Type: q.String, SQL: "e.title"},
		q.Column{Name: "Department", Type: q.String, SQL: "BUILTIN.DF(e.department)"},
		q.Column{Name: "Supervisor", Type: q.String, SQL: "BUILTIN.DF(e.supervisor)"},
		q.Column{Name: "HireDate", Type: q.Date, SQL: "e.hiredate"},
		q.Column{Name: "Inactive", Type: q.Boolean, SQL: "e.isinactive"},
	),
	Statement: q.Statement{
		Template:    suiteQL("employee e"),
		DefaultSort: q.Order{Column: "LastName", SortOrder: q.Asc},
	},
}

// Items lists inventory, service and other items.
var Items = Entity{
	Name:        "list_items",
	Description: "List items (inventory, non-inventory, service and other item types).",
	Kind:        SuiteQL,
	Schema: q.MustSchema(
		q.Column{Name: "Id", Type: q.ID, SQL: "i.id"},
		q.Column{Name: "ItemId", Type: q.String, SQL: "i.itemid"},
		q.Column{Name: "DisplayName", Type: q.String, SQL: "i.displayname"},
		q.Column{Name: "Type", Type: q.String, SQL: "i.itemtype"},
		q.Column{Name: "Description", Type: q.String, SQL: "i.description"},
		q.Column{Name: "IncomeAccount", Type: q.String, SQL: "BUILTIN.DF(i.incomeaccount)"},
		q.Column{Name: "ExpenseAccount", Type: q.String, SQL: "BUILTIN.DF(i.expenseaccount)"},
		q.Column{Name: "Inactive", Type: q.Boolean, SQL: "i.isinactive"},
	),
	Statement: q.Statement{
		Template:    suiteQL("item i"),
		DefaultSort: q.Order{Column: "ItemId", SortOrder: q.Asc},
	},
}

func segment(name, description, table, alias string) Entity {
	nameCol := q.Column{Name: "Name", Type: q.String, SQL: alias + ".name"}
	return Entity{
		Name:        name,
		Description: description,
		Kind:        SuiteQL,
		Schema: q.MustSchema(
			q.Column{Name: "Id", Type: q.ID, SQL: alias + ".id"},
			nameCol,
			q.Column{Name: "FullName", Type: q.String, SQL: alias + ".fullname"},
			q.Column{Name: "ParentId", Type: q.ID, SQL: alias + ".parent"},
			q.Column{Name: "Inactive", Type: q.Boolean, SQL: alias + ".isinactive"},
			q.Column{Name: "Subsidiary", Type: q.ID, SQL: alias + ".subsidiary", FilterOnly: true},
		),
		Statement: q.Statement{
			Template:    suiteQL(table + " " + alias),
			DefaultSort: byName(nameCol),
		},
		Hierarchy: &namedHierarchy,
	}
}

var (
	Departments = segment("list_departments", "List departments with their parent department.", "department", "d")
	Classes     = segment("list_classes", "List classes with their parent class.", "classification", "c")
	Locations   = segment("list_locations", "List locations with their parent location.", "location", "l")
)

// Currencies lists currencies and their exchange rates.
var Currencies = Entity{
	Name:        "list_currencies",
	Description: "List currencies with symbol and exchange rate against the base currency.",
	Kind:        SuiteQL,
	Schema: q.MustSchema(
		q.Column{Name: "Id", Type: q.ID, SQL: "c.id"},
		q.Column{Name: "Name", Type: q.String, SQL: "c.name"},
		q.Column{Name: "Symbol", Type: q.String, SQL: "c.symbol"},
		q.Column{Name: "ExchangeRate", Type: q.Number, SQL: "c.exchangerate"},
		q.Column{Name: "IsBaseCurrency", Type: q.Boolean, SQL: "c.isbasecurrency"},
		q.Column{Name: "Inactive", Type: q.Boolean, SQL: "c.isinactive"},
	),
	Statement: q.Statement{
		Template:    suiteQL("currency c"),
		DefaultSort: q.Order{Column: "Name", SortOrder: q.Asc},
	},
}

// AccountingPeriods lists posting periods, quarters and years.
var AccountingPeriods = Entity{
	Name:        "list_accounting_periods",
	Description: "List accounting periods with start and end dates and close status.",
	Kind:        SuiteQL,
	Schema: q.MustSchema(
		q.Column{Name: "Id", Type: q.ID, SQL: "p.id"},
		q.Column{Name: "Name", Type: q.String, SQL: "p.periodname"},
		q.Column{Name: "StartDate", Type: q.Date, SQL: "p.startdate"},
		q.Column{Name: "EndDate", Type: q.Date, SQL: "p.enddate"},
		q.Column{Name: "Closed", Type: q.Boolean, SQL: "p.closed"},
		q.Column{Name: "Quarter", Type: q.Boolean, SQL: "p.isquarter"},
		q.Column{Name: "Year", Type: q.Boolean, SQL: "p.isyear"},
		q.Column{Name: "Adjustment", Type: q.Boolean, SQL: "p.isadjust"},
	),
	Statement: q.Statement{
		Template:    suiteQL("accountingperiod p"),
		Inbuilt:     "p.isinactive = 'F'",
		DefaultSort: q.Order{Column: "StartDate", SortOrder: q.Desc},
	},
}

// transactionColumns are shared by the transaction searches.
func transactionColumns(extra ...q.Column) *q.Schema {
	cols := []q.Column{
		{Name: "Id", Type: q.ID, Field: "internalid"},
		{Name: "TranId", Type: q.String, Field: "tranid"},
		{Name: "TranDate", Type: q.Date, Field: "trandate"},
		{Name: "Entity", Type: q.String, Field: "entity", Text: true},
		{Name: "Status", Type: q.String, Field: "statusref", Text: true},
		{Name: "Amount", Type: q.Number, Field: "amount"},
		{Name: "Currency", Type: q.String, Field: "currency", Text: true},
		{Name: "Memo", Type: q.String, Field: "memo"},
	}
	cols = append(cols, extra...)
	cols = append(cols,
		q.Column{Name: "Subsidiary", Type: q.ID, Field: "subsidiary", FilterOnly: true},
		q.Column{Name: "EntityId", Type: q.ID, Field: "entity", FilterOnly: true},
		q.Column{Name: "Period", Type: q.ID, Field: "postingperiod", FilterOnly: true},
	)
	return q.MustSchema(cols...)
}

func transactionSearch(name, description, recordType string, extra ...q.Column) Entity {
	return Entity{
		Name:        name,
		Description: description,
		Kind:        Search,
		Schema:      transactionColumns(extra...),
		Search: q.SearchDefinition{
			Type:        recordType,
			Inbuilt:     q.Expression{[]any{"mainline", "is", "T"}},
			DefaultSort: q.Order{Column: "TranDate", SortOrder: q.Desc},
		},
	}
}

var (
	Transactions = transactionSearch("search_transactions",
		"Search transactions of every type (header lines only).", "transaction",
		q.Column{Name: "Type", Type: q.String, Field: "type", Text: true},
		q.Column{Name: "Posting", Type: q.Boolean, Field: "posting", FilterOnly: true},
	)
	Invoices = transactionSearch("search_invoices",
		"Search customer invoices with due date and open balance.", "invoice",
		q.Column{Name: "DueDate", Type: q.Date, Field: "duedate"},
		q.Column{Name: "AmountRemaining", Type: q.Number, Field: "amountremaining"},
		q.Column{Name: "CustomerEmail", Type: q.String, Field: "email", Join: "customer"},
		q.Column{Name: "DaysOverdue", Type: q.Number, Field: "daysoverdue"},
	)
	VendorBills = transactionSearch("search_vendor_bills",
		"Search vendor bills with due date and open balance.", "vendorbill",
		q.Column{Name: "DueDate", Type: q.Date, Field: "duedate"},
		q.Column{Name: "AmountRemaining", Type: q.Number, Field: "amountremaining"},
		q.Column{Name: "VendorEmail", Type: q.String, Field: "email", Join: "vendor"},
	)
	JournalEntries = transactionSearch("search_journal_entries",
		"Search journal entries.", "journalentry",
		q.Column{Name: "Approved", Type: q.Boolean, Field: "approved"},
		q.Column{Name: "Reversal", Type: q.String, Field: "reversalnumber"},
	)
	SalesOrders = transactionSearch("search_sales_orders",
		"Search sales orders.", "salesorder",
		q.Column{Name: "ShipDate", Type: q.Date, Field: "shipdate"},
		q.Column{Name: "Label", Type: q.String, Formula: "formulatext: {tranid} || ' ' || {entity}"},
	)
	PurchaseOrders = transactionSearch("search_purchase_orders",
		"Search purchase orders.", "purchaseorder",
		q.Column{Name: "ExpectedDate", Type: q.Date, Field: "duedate"},
	)
)

// balanceSchema is the summary search behind the balance roll-up. Account
// ids come from the account tree, so only date and segment filters are
// exposed.
var balanceSchema = q.MustSchema(
	q.Column{Name: "Account", Type: q.ID, Field: "account", Summary: "GROUP"},
	q.Column{Name: "Amount", Type: q.Number, Field: "amount", Summary: "SUM"},
	q.Column{Name: "TranDate", Type: q.Date, Field: "trandate", FilterOnly: true},
	q.Column{Name: "Period", Type: q.ID, Field: "postingperiod", FilterOnly: true},
	q.Column{Name: "Subsidiary", Type: q.ID, Field: "subsidiary", FilterOnly: true},
	q.Column{Name: "Department", Type: q.ID, Field: "department", FilterOnly: true},
	q.Column{Name: "Class", Type: q.ID, Field: "class", FilterOnly: true},
	q.Column{Name: "Location", Type: q.ID, Field: "location", FilterOnly: true},
)

// BalanceSchema returns the filterable columns of the balance roll-up.
func BalanceSchema() *q.Schema { return balanceSchema }

func balanceDefinition(ids []string) q.SearchDefinition {
	anyOf := make([]any, 0, len(ids)+2)
	anyOf = append(anyOf, "account", q.SearchAnyOf)
	for _, id := range ids {
		anyOf = append(anyOf, id)
	}
	return q.SearchDefinition{
		Type:     "transaction",
		Inbuilt:  q.Expression{anyOf, "AND", []any{"posting", "is", "T"}},
		Settings: []q.Setting{{Name: "consolidationtype", Value: "ACCTTYPE"}},
	}
}

// Entities returns every queryable entity, sorted by tool name.
func Entities() []Entity {
	all := []Entity{
		Accounts, Subsidiaries, Customers, Vendors, Employees, Items,
		Departments, Classes, Locations, Currencies, AccountingPeriods,
		Transactions, Invoices, VendorBills, JournalEntries, SalesOrders, PurchaseOrders,
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all
}

// Lookup finds an entity by tool name.
func Lookup(name string) (Entity, bool) {
	for _, e := range Entities() {
		if e.Name == name {
			return e, true
		}
	}
	return Entity{}, false
}
