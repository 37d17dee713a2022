package browser

// Selectors holds the DOM affordances on the target site surface. The
// exact values are a deployment concern, not something this module can
// know in advance — these are placeholders a deployment overrides via
// Options.
type Selectors struct {
	UsernameInput   string
	PasswordInput   string
	LoginSubmit     string
	LicenseAccept   string
	ReferenceFilter string
	ClearFilter     string
	ExportCSVButton string
	RowOpenByRef    string // format string taking the reference, e.g. `tr[data-ref="%s"] a.open`
	CreatePDFButton string
}

// DefaultSelectors are reasonable generic placeholders; real
// deployments must override them with values matched to the target
// site's rendered markup.
func DefaultSelectors() Selectors {
	return Selectors{
		UsernameInput:   `input[name="username"]`,
		PasswordInput:   `input[name="password"]`,
		LoginSubmit:     `button[type="submit"]`,
		LicenseAccept:   `button#accept-license`,
		ReferenceFilter: `input[name="reference-filter"]`,
		ClearFilter:     `button#clear-filters`,
		ExportCSVButton: `button#export-csv`,
		RowOpenByRef:    `tr[data-reference="%s"] a.open-item`,
		CreatePDFButton: `button#create-pdf`,
	}
}
