// Package viewmodel defines presentation-ready structs for templ components.
// View models decouple template rendering from domain model types.
package viewmodel

// BoardViewModel holds everything the device board page renders.
type BoardViewModel struct {
	Query         string
	Devices       []DeviceViewModel
	Unplaced      []AppTileViewModel // accounts whose notes place them on no device
	TotalAccounts int
	CSRFToken     string
	Error         string
	Form          AccountFormViewModel
}

// DeviceViewModel holds presentation-ready data for one inferred phone.
type DeviceViewModel struct {
	Key         string
	DisplayName string
	Kind        string // "ios" or "android"; also the card's CSS class
	Apps        []AppTileViewModel
}

// AppTileViewModel is one account drawn as an app icon on a device card.
type AppTileViewModel struct {
	ID           string
	Platform     string
	Handle       string
	Username     string
	NotesHTML    string // sanitized
	HasPassword  bool
	HasTwoFactor bool
	UpdatedAt    string
	DeletePath   string
}

// AccountFormViewModel carries submitted values back into the add form after
// a validation error.
type AccountFormViewModel struct {
	Platform string
	Handle   string
	Username string
	Notes    string
}
