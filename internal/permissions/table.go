package permissions

// Page identifies a feature area of the application.
type Page string

const (
	PageDashboard    Page = "dashboard"
	PageResidents    Page = "residents"
	PageClearances   Page = "clearances"
	PageBlotter      Page = "blotter"
	PageFinancial    Page = "financial"
	PageDocuments    Page = "documents"
	PageUsers        Page = "users"
	PageSettings     Page = "settings"
	PageActivityLogs Page = "activity_logs"
	PageBarangays    Page = "barangays"
)

type roleEntry struct {
	pages  []Page
	issues []Role
	denial string
}

// The table is read-only after package initialisation.
var table = map[Role]roleEntry{
	RoleSuperadmin: {
		pages: []Page{
			PageDashboard, PageBarangays, PageUsers, PageActivityLogs,
			PageResidents, PageClearances, PageBlotter, PageFinancial, PageDocuments,
		},
		issues: []Role{RoleBarangayCaptain},
		denial: "Superadmins can only invite barangay captains",
	},
	RoleBarangayCaptain: {
		pages: []Page{
			PageDashboard, PageResidents, PageClearances, PageBlotter, PageFinancial,
			PageDocuments, PageUsers, PageSettings, PageActivityLogs,
		},
		issues: OperationalRoles,
		denial: "Barangay captains can only invite operational roles",
	},
	RoleSecretary: {
		pages: []Page{
			PageDashboard, PageResidents, PageClearances, PageBlotter,
			PageDocuments, PageUsers, PageSettings, PageActivityLogs,
		},
		issues: []Role{RoleStaff},
		denial: "Secretaries can only invite staff",
	},
	RoleTreasurer: {
		pages: []Page{PageDashboard, PageFinancial, PageClearances, PageDocuments},
	},
	RoleStaff: {
		pages: []Page{PageDashboard, PageResidents, PageClearances, PageDocuments},
	},
	RolePeaceOrderOfficer: {
		pages: []Page{PageDashboard, PageBlotter, PageResidents},
	},
	RoleHealthOfficer: {
		pages: []Page{PageDashboard, PageResidents, PageDocuments},
	},
	RoleSocialWorker: {
		pages: []Page{PageDashboard, PageResidents, PageDocuments},
	},
}

const defaultDenial = "Your role cannot send invitations"

// PagesFor returns the pages role may open. Unknown roles get none.
func PagesFor(role Role) []Page {
	entry, ok := table[role]
	if !ok {
		return nil
	}
	out := make([]Page, len(entry.pages))
	copy(out, entry.pages)
	return out
}

// CanAccess reports whether role may open page.
func CanAccess(role Role, page Page) bool {
	for _, p := range table[role].pages {
		if p == page {
			return true
		}
	}
	return false
}

// CanIssue reports whether an issuer with the given role may invite target.
func CanIssue(issuer, target Role) bool {
	for _, r := range table[issuer].issues {
		if r == target {
			return true
		}
	}
	return false
}

// IssuableRoles returns the roles issuer may invite, possibly empty.
func IssuableRoles(issuer Role) []Role {
	issues := table[issuer].issues
	out := make([]Role, len(issues))
	copy(out, issues)
	return out
}

// IssueDenial is the message shown when issuer requests a role outside its allowed set.
func IssueDenial(issuer Role) string {
	if msg := table[issuer].denial; msg != "" {
		return msg
	}
	return defaultDenial
}

// RequiresConfiguredTenant reports whether the issuer's barangay must be fully set up
// before invitations can be sent.
func RequiresConfiguredTenant(issuer Role) bool {
	return issuer == RoleBarangayCaptain || issuer == RoleSecretary
}
