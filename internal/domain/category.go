package domain

// Category is the legacy routing class of an event.
type Category string

const (
	CategoryNone    Category = ""
	CategoryGeneral Category = "general"
	CategoryRdB     Category = "rdb"
	CategoryRdC     Category = "rdc"
)

func (c Category) String() string {
	return string(c)
}

func ParseCategory(s string) Category {
	switch Category(s) {
	case CategoryGeneral, CategoryRdB, CategoryRdC:
		return Category(s)
	default:
		return CategoryNone
	}
}
