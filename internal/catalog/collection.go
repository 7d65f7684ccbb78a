package catalog

// DefaultBaseURL is the storefront the catalog is fetched from.
const DefaultBaseURL = "https://www.axisfoils.com"

// Collection handles.
const (
	FrontWings = "front-wings"
	RearWings  = "rear-wings"
	Masts      = "masts"
	Fuselages  = "fuselages"
)

// Collection is a storefront collection.
type Collection struct {
	Handle string
	Name   string
}

// DefaultCollections returns the collections fetched by default.
func DefaultCollections() []Collection {
	return []Collection{
		{Handle: FrontWings, Name: "Front Wings"},
		{Handle: RearWings, Name: "Rear Wings"},
		{Handle: Masts, Name: "Masts"},
		{Handle: Fuselages, Name: "Fuselages"},
	}
}

// LookupCollection returns the default collection with handle.
func LookupCollection(handle string) (Collection, bool) {
	for _, c := range DefaultCollections() {
		if c.Handle == handle {
			return c, true
		}
	}
	return Collection{}, false
}
