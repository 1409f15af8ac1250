package board

// Person is a resolved member of one of the visible projects.
type Person struct {
	ID       int
	Name     string
	Initials string
}

// Directory holds the union of all project memberships, deduplicated by
// person ID. Lookups are linear; the set is small.
type Directory struct {
	people []Person
}

func NewDirectory(people []Person) *Directory {
	seen := make(map[int]struct{}, len(people))
	unique := make([]Person, 0, len(people))
	for _, p := range people {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		unique = append(unique, p)
	}
	return &Directory{people: unique}
}

func (d *Directory) All() []Person {
	return d.people
}

// ByID returns the person with the given ID, or nil.
func (d *Directory) ByID(id int) *Person {
	for i := range d.people {
		if d.people[i].ID == id {
			return &d.people[i]
		}
	}
	return nil
}

// ByInitials returns the first person whose initials match exactly
// (case-sensitive), or nil. Duplicate initials resolve to whichever
// membership was listed first.
func (d *Directory) ByInitials(initials string) *Person {
	for i := range d.people {
		if d.people[i].Initials == initials {
			return &d.people[i]
		}
	}
	return nil
}
