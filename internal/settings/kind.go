package settings

// Kind identifies an entity family and, through Config.Root, its storage root.
type Kind int

const (
	KindPage Kind = iota
	KindBook
	KindGroup
	KindTemp
	KindHistory
)

func (k Kind) String() string {
	switch k {
	case KindPage:
		return "page"
	case KindBook:
		return "book"
	case KindGroup:
		return "group"
	case KindTemp:
		return "temp"
	case KindHistory:
		return "history"
	default:
		return "unknown"
	}
}
