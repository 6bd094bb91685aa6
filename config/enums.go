package config

// Specification of requested output type.
// ENUM(bundle, text, db)
type OutputFmt int

func (o OutputFmt) Ext() string {
	switch o {
	case OutputFmtBundle:
		return ".zip"
	case OutputFmtText:
		return ".txt"
	case OutputFmtDb:
		return ".db"
	default:
		// this should never happen
		panic("unsupported format requested")
	}
}
