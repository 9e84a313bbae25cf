package remote

// Built-in operation names. Modules serve these; anything else goes through
// the custom handler registry.
const (
	opInitialize = "initialize"
	opResolve    = "resolve"
	opPagerNext  = "pager.next"
	opPagerClose = "pager.close"
)

// identityPayload rides the ready frame from module to host.
type identityPayload struct {
	Identifier  string            `json:"identifier"`
	DisplayName string            `json:"display_name"`
	Info        map[string]string `json:"info,omitempty"`
}

type initializeRequest struct {
	Settings map[string]string `json:"settings,omitempty"`
}

type resolveRequest struct {
	Refs     []string `json:"refs"`
	PageSize int      `json:"page_size"`
}

// itemPayload is one per-item outcome. Code zero means success and Data
// holds the payload; otherwise Message describes the per-item failure.
type itemPayload struct {
	Code    int32  `json:"code"`
	Data    []byte `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// pagePayload is the response to resolve and every pager advancement: the
// current page plus the continuation flag.
type pagePayload struct {
	Pager   string        `json:"pager"`
	Items   []itemPayload `json:"items"`
	HasNext bool          `json:"has_next"`
}

type pagerRequest struct {
	Pager string `json:"pager"`
}
