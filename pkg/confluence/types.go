package confluence

type Page struct {
	ID      string   `json:"id"`
	Type    string   `json:"type"`
	Status  string   `json:"status,omitempty"`
	Title   string   `json:"title"`
	Space   *Space   `json:"space,omitempty"`
	Version *Version `json:"version,omitempty"`
	Body    *Body    `json:"body,omitempty"`
	Links   Links    `json:"_links,omitempty"`
}

// Content returns the storage format body, if it was expanded.
func (p *Page) Content() string {
	if p.Body == nil || p.Body.Storage == nil {
		return ""
	}
	return p.Body.Storage.Value
}

type Space struct {
	ID   int64  `json:"id,omitempty"`
	Key  string `json:"key"`
	Name string `json:"name,omitempty"`
	Type string `json:"type,omitempty"`
}

type Version struct {
	Number  int    `json:"number"`
	Message string `json:"message,omitempty"`
	When    string `json:"when,omitempty"`
}

type Body struct {
	Storage *Storage `json:"storage,omitempty"`
}

type Storage struct {
	Value          string `json:"value"`
	Representation string `json:"representation"`
}

type Links struct {
	WebUI string `json:"webui,omitempty"`
	Base  string `json:"base,omitempty"`
}

type SearchResult struct {
	Results []Page `json:"results"`
	Start   int    `json:"start"`
	Limit   int    `json:"limit"`
	Size    int    `json:"size"`
}

type spaceList struct {
	Results []Space `json:"results"`
}
