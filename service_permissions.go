package agencykit

import "context"

// ============================================================================
// PERMISSION CHECKING
// ============================================================================

// UserCanViewPage checks a page for a stored user. Unknown users are denied.
//
// Example:
//
//	if service.UserCanViewPage(ctx, userID, agencykit.PageInvoices) {
//	    // show the Invoices link
//	}
func (s *Service) UserCanViewPage(ctx context.Context, userID string, page Page) bool {
	checker, err := s.GetChecker(ctx, userID)
	if err != nil {
		return false
	}
	return checker.CanViewPage(page)
}

// UserHasPermission checks a dotted permission such as "task.update" for a
// stored user. Unknown users and malformed permissions are denied.
func (s *Service) UserHasPermission(ctx context.Context, userID, permission string) bool {
	perm, err := ParsePermission(permission)
	if err != nil {
		return false
	}
	checker, err := s.GetChecker(ctx, userID)
	if err != nil {
		return false
	}
	return checker.HasPermission(perm)
}

// UserGrants returns every permission a stored user holds in dotted form.
func (s *Service) UserGrants(ctx context.Context, userID string) ([]string, error) {
	checker, err := s.GetChecker(ctx, userID)
	if err != nil {
		return nil, err
	}
	return checker.Grants(), nil
}
