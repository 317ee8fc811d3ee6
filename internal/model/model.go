// Package model contains the contact data model: validated fields, the contact record and the
// directory that maps contact names to records.
package model

// FieldKind tells which kind of contact field a value belongs to.
type FieldKind int

const (
	KindName FieldKind = iota
	KindPhone
	KindBirthday
)

// String returns the lower case name of the field kind as used in error messages.
func (k FieldKind) String() string {
	switch k {
	case KindName:
		return "name"
	case KindPhone:
		return "phone"
	case KindBirthday:
		return "birthday"
	default:
		return "unknown"
	}
}
