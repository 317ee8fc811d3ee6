package model

import (
	"iter"
	"slices"
)

// Directory is the address book: an insertion ordered mapping from contact name to record.
// Every key is equal to the name of the record it maps to.
type Directory struct {
	records map[string]*Record
	order   []string
}

// NewDirectory returns an empty directory.
func NewDirectory() *Directory {
	return &Directory{records: make(map[string]*Record)}
}

// Len returns the number of contacts.
func (d *Directory) Len() int {
	return len(d.order)
}

// AddRecord stores the record under its name. An existing record with the same name is replaced
// and the contact keeps its original position.
func (d *Directory) AddRecord(record *Record) {
	name := record.Name()
	if _, exists := d.records[name]; !exists {
		d.order = append(d.order, name)
	}
	d.records[name] = record
}

// DeleteRecord removes the named contact.
func (d *Directory) DeleteRecord(name string) error {
	if _, exists := d.records[name]; !exists {
		return contactNotFound(name)
	}
	delete(d.records, name)
	d.order = slices.DeleteFunc(d.order, func(n string) bool { return n == name })
	return nil
}

// FindRecord returns the named contact's record.
func (d *Directory) FindRecord(name string) (*Record, bool) {
	record, ok := d.records[name]
	return record, ok
}

// AddPhone adds the phone to the named contact. If there is no such contact yet, a new record
// is created with this phone as its only number.
func (d *Directory) AddPhone(name, raw string) error {
	if record, ok := d.records[name]; ok {
		return record.AddPhone(raw)
	}
	record, err := NewRecord(name, raw)
	if err != nil {
		return err
	}
	d.AddRecord(record)
	return nil
}

// DeletePhone removes all occurrences of the phone from the named contact. A phone the contact
// does not have is ignored, a missing contact is not.
func (d *Directory) DeletePhone(name, raw string) error {
	record, ok := d.records[name]
	if !ok {
		return contactNotFound(name)
	}
	record.RemovePhone(raw)
	return nil
}

// ChangePhone replaces the first occurrence of the old phone of the named contact.
func (d *Directory) ChangePhone(name, oldPhone, newPhone string) error {
	record, ok := d.records[name]
	if !ok {
		return contactNotFound(name)
	}
	return record.EditPhone(oldPhone, newPhone)
}

// AddBirthday sets the birthday of the named contact.
func (d *Directory) AddBirthday(name, raw string) error {
	record, ok := d.records[name]
	if !ok {
		return contactNotFound(name)
	}
	return record.SetBirthday(raw)
}

// All iterates over the contacts in insertion order.
func (d *Directory) All() iter.Seq2[string, *Record] {
	return func(yield func(string, *Record) bool) {
		for _, name := range d.order {
			if !yield(name, d.records[name]) {
				return
			}
		}
	}
}
