package agencykit

// RecentTaskLimit is how many tasks Summary.RecentTasks holds.
const RecentTaskLimit = 5

// Summary is the dashboard overview for one actor.
type Summary struct {
	ActiveProjects  int    `json:"activeProjects"`
	PendingTasks    int    `json:"pendingTasks"`
	AwaitingPayment int    `json:"awaitingPayment"`
	TotalClients    int    `json:"totalClients"`
	RecentTasks     []Task `json:"recentTasks"`
}

// Summarize computes the dashboard over the rows the actor can see.
// Counts are never taken over unscoped data.
//
// RecentTasks holds the last RecentTaskLimit visible tasks, newest first,
// where newest means latest in the store's order.
func (t *Table) Summarize(actor *Actor, ds *Dataset) Summary {
	scoped := t.ScopeDataset(actor, ds)

	s := Summary{
		TotalClients: len(scoped.Clients),
		RecentTasks:  []Task{},
	}
	for _, p := range scoped.Projects {
		if p.Status == ProjectActive {
			s.ActiveProjects++
		}
	}
	for _, t := range scoped.Tasks {
		if t.Status != TaskDone {
			s.PendingTasks++
		}
	}
	for _, i := range scoped.Invoices {
		if i.AwaitingPayment() {
			s.AwaitingPayment++
		}
	}
	for i := len(scoped.Tasks) - 1; i >= 0 && len(s.RecentTasks) < RecentTaskLimit; i-- {
		s.RecentTasks = append(s.RecentTasks, scoped.Tasks[i])
	}
	return s
}

// Summarize computes the dashboard against DefaultTable.
func Summarize(actor *Actor, ds *Dataset) Summary {
	return DefaultTable.Summarize(actor, ds)
}
