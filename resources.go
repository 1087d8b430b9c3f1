package agencykit

import "fmt"

// ResourceKind is a category of record subject to create/update/delete checks.
type ResourceKind string

const (
	KindClient   ResourceKind = "Client"
	KindProject  ResourceKind = "Project"
	KindTask     ResourceKind = "Task"
	KindInvoice  ResourceKind = "Invoice"
	KindDocument ResourceKind = "Document"
	KindEmployee ResourceKind = "Employee"
)

// AllResourceKinds returns every resource kind in a stable order.
func AllResourceKinds() []ResourceKind {
	return []ResourceKind{KindClient, KindProject, KindTask, KindInvoice, KindDocument, KindEmployee}
}

// IsValid reports whether k is a known resource kind.
func (k ResourceKind) IsValid() bool {
	switch k {
	case KindClient, KindProject, KindTask, KindInvoice, KindDocument, KindEmployee:
		return true
	}
	return false
}

// String returns the kind name.
func (k ResourceKind) String() string {
	return string(k)
}

// ParseResourceKind converts a kind name into a ResourceKind.
func ParseResourceKind(s string) (ResourceKind, error) {
	k := ResourceKind(s)
	if !k.IsValid() {
		return "", NewError(ErrInvalidResource, fmt.Sprintf("unknown resource kind %q", s))
	}
	return k, nil
}

// Page identifies a top-level view by its path.
type Page string

const (
	PageDashboard Page = "/dashboard"
	PageClients   Page = "/clients"
	PageProjects  Page = "/projects"
	PageTasks     Page = "/tasks"
	PageInvoices  Page = "/invoices"
	PageDocuments Page = "/documents"
	PageEmployees Page = "/employees"
)

// AllPages returns every page in navigation order.
func AllPages() []Page {
	return []Page{PageDashboard, PageClients, PageProjects, PageTasks, PageInvoices, PageDocuments, PageEmployees}
}

// IsValid reports whether p is a known page.
func (p Page) IsValid() bool {
	switch p {
	case PageDashboard, PageClients, PageProjects, PageTasks, PageInvoices, PageDocuments, PageEmployees:
		return true
	}
	return false
}

// String returns the page path.
func (p Page) String() string {
	return string(p)
}

// View returns the navigation label for the page ("Clients" for "/clients").
func (p Page) View() string {
	for view, page := range viewPages {
		if page == p {
			return view
		}
	}
	return ""
}

var viewPages = map[string]Page{
	"Dashboard": PageDashboard,
	"Clients":   PageClients,
	"Projects":  PageProjects,
	"Tasks":     PageTasks,
	"Invoices":  PageInvoices,
	"Documents": PageDocuments,
	"Employees": PageEmployees,
}

// PageForView maps a navigation label to its page.
func PageForView(view string) (Page, bool) {
	p, ok := viewPages[view]
	return p, ok
}
