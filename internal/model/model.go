package model

// AppID identifies one editing app hosted by the overlay. Each app maps to a
// single control-panel page on the Expert site and owns a fixed set of
// editable items (one form field each).
type AppID string

const (
	AppCSS  AppID = "css"
	AppHTML AppID = "html"
)

// Language hints which syntax an item holds; it selects formatter arguments
// and editor chrome, nothing else.
type Language string

const (
	LangCSS  Language = "css"
	LangHTML Language = "html"
)

// ItemSpec describes one editable item: a per-role stylesheet or a custom
// HTML fragment. FieldName is the legacy form's textarea name.
type ItemSpec struct {
	ID        string   `json:"id"`
	Label     string   `json:"label"`
	FieldName string   `json:"fieldName"`
	Language  Language `json:"language"`
}

// AppSpec describes one editing app: which control-panel page it talks to and
// which items that page's form carries. SubmitName/SubmitValue reproduce the
// legacy save button, which the endpoint requires as a posted field.
type AppSpec struct {
	ID          AppID      `json:"id"`
	Title       string     `json:"title"`
	Path        string     `json:"path"`
	SubmitName  string     `json:"submitName"`
	SubmitValue string     `json:"submitValue"`
	Items       []ItemSpec `json:"items"`
}

// FieldNames returns the form field for every item, in item order.
func (a AppSpec) FieldNames() []string {
	names := make([]string, 0, len(a.Items))
	for _, it := range a.Items {
		names = append(names, it.FieldName)
	}
	return names
}

// Item returns the ItemSpec with the given id.
func (a AppSpec) Item(id string) (ItemSpec, bool) {
	for _, it := range a.Items {
		if it.ID == id {
			return it, true
		}
	}
	return ItemSpec{}, false
}

// DefaultCSSApp is the per-role custom CSS editor. Role ids and field names
// match the legacy control panel's custom-CSS form.
func DefaultCSSApp(path string) AppSpec {
	if path == "" {
		path = "/Special:CustomCSS"
	}
	return AppSpec{
		ID:          AppCSS,
		Title:       "Custom CSS",
		Path:        path,
		SubmitName:  "submit",
		SubmitValue: "Save",
		Items: []ItemSpec{
			{ID: "all", Label: "All roles", FieldName: "css_all", Language: LangCSS},
			{ID: "anonymous", Label: "Anonymous", FieldName: "css_anonymous", Language: LangCSS},
			{ID: "community", Label: "Community member", FieldName: "css_community", Language: LangCSS},
			{ID: "pro", Label: "Pro member", FieldName: "css_pro", Language: LangCSS},
		},
	}
}

// DefaultHTMLApp is the custom HTML head/tail editor.
func DefaultHTMLApp(path string) AppSpec {
	if path == "" {
		path = "/Special:CustomHTML"
	}
	return AppSpec{
		ID:          AppHTML,
		Title:       "Custom HTML",
		Path:        path,
		SubmitName:  "submit",
		SubmitValue: "Save",
		Items: []ItemSpec{
			{ID: "head", Label: "Head", FieldName: "html_head", Language: LangHTML},
			{ID: "tail", Label: "Tail", FieldName: "html_tail", Language: LangHTML},
		},
	}
}

// AppState is the persisted local snapshot for one app: which items had an
// editor open, the user's in-progress content, the dirty flags at persist
// time, and the baselines those edits were made against. Dirty flags are
// derivable from content vs. originalContent; they are stored anyway so a
// restore can decide checkpoint protection without recomputing.
type AppState struct {
	Version         int               `json:"version"`
	ActiveItemIDs   []string          `json:"activeItemIds,omitempty"`
	Content         map[string]string `json:"content"`
	IsDirty         map[string]bool   `json:"isDirty"`
	OriginalContent map[string]string `json:"originalContent"`
}

// AnyDirty reports whether the snapshot records at least one unsaved edit.
func (s *AppState) AnyDirty() bool {
	if s == nil {
		return false
	}
	for _, d := range s.IsDirty {
		if d {
			return true
		}
	}
	return false
}

// UIState is the shared, cross-app layout state (best effort, cosmetic).
type UIState struct {
	Version      int    `json:"version"`
	LastAppID    string `json:"lastAppId,omitempty"`
	SidebarWidth int    `json:"sidebarWidth,omitempty"`
	SplitRatio   int    `json:"splitRatio,omitempty"` // editor pane split, percent
	HelpSeen     bool   `json:"helpSeen,omitempty"`
}
