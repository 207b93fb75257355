package resource

// Resource описывает коллекцию API и её хранение
type Resource struct {
	Name      string               `yaml:"-"`        // logical name, taken from the file name
	Table     string               `yaml:"table"`    // SQL table / Mongo collection
	Owner     string               `yaml:"owner"`    // field holding the owning user's id
	Parent    *ParentScope         `yaml:"parent"`   // nested listing under another resource
	Populate  []string             `yaml:"populate"` // relations expanded on the flat listing
	Fields    []*Field             `yaml:"fields"`
	Relations map[string]*Relation `yaml:"relations"`

	// для runtime (не сериализуется)
	byName map[string]*Field
}

// ParentScope binds a route variable to the field that references the parent.
type ParentScope struct {
	Param    string `yaml:"param"`    // e.g. "bootcampId"
	Field    string `yaml:"field"`    // e.g. "bootcamp"
	Resource string `yaml:"resource"` // e.g. "bootcamps"
	Owned    bool   `yaml:"owned"`    // only the parent's owner may create children
}

// Field описывает одно поле ресурса
type Field struct {
	Name      string   `yaml:"name"`       // API name, e.g. "averageCost"
	Column    string   `yaml:"column"`     // storage name, defaults to Name
	Type      string   `yaml:"type"`       // string, text, int, float, bool, time, uuid, array
	Required  bool     `yaml:"required"`   // must be present on create
	Unique    bool     `yaml:"unique"`     // enforced by the store
	Hidden    bool     `yaml:"hidden"`     // never projected (e.g. password)
	Enum      []string `yaml:"enum"`       // allowed values for strings
	Default   any      `yaml:"default"`    // applied on create
	MaxLength int      `yaml:"max_length"` // for string and text
	MinLength int      `yaml:"min_length"`
	Message   string   `yaml:"message"`   // required-field message
	ReadOnly  bool     `yaml:"read_only"` // ignored in client payloads
}

// Relation describes a linked resource that can be populated.
type Relation struct {
	Type     string   `yaml:"type"`     // belongs_to, has_many
	Resource string   `yaml:"resource"` // target resource name
	FK       string   `yaml:"fk"`       // belongs_to: local field; has_many: field on target
	Select   []string `yaml:"select"`   // default projection of the populated record

	// для runtime
	target *Resource
}

const (
	IDField        = "id"
	CreatedAtField = "createdAt"

	BelongsTo = "belongs_to"
	HasMany   = "has_many"
)

func (r *Relation) Target() *Resource {
	return r.target
}

// SetTarget links the relation, used by Registry.Link and tests.
func (r *Relation) SetTarget(t *Resource) {
	r.target = t
}

// Col returns the storage column of the field.
func (f *Field) Col() string {
	if f.Column != "" {
		return f.Column
	}
	return f.Name
}

// Field looks up a field by API name, including the implicit id and createdAt.
func (r *Resource) Field(name string) (*Field, bool) {
	if r.byName == nil {
		r.index()
	}
	f, ok := r.byName[name]
	return f, ok
}

// Visible returns the fields a default projection returns, in declaration order.
func (r *Resource) Visible() []*Field {
	if r.byName == nil {
		r.index()
	}
	out := make([]*Field, 0, len(r.Fields)+2)
	out = append(out, r.byName[IDField])
	for _, f := range r.Fields {
		if !f.Hidden {
			out = append(out, f)
		}
	}
	out = append(out, r.byName[CreatedAtField])
	return out
}

// Projection resolves a select list to fields, always including id.
// Unknown and hidden names are dropped. An empty list means Visible().
func (r *Resource) Projection(names []string) []*Field {
	if len(names) == 0 {
		return r.Visible()
	}
	id, _ := r.Field(IDField)
	out := []*Field{id}
	seen := map[string]bool{IDField: true}
	for _, n := range names {
		f, ok := r.Field(n)
		if !ok || f.Hidden || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, f)
	}
	return out
}

// Relation returns the named relation.
func (r *Resource) Relation(name string) (*Relation, bool) {
	rel, ok := r.Relations[name]
	return rel, ok
}

func (r *Resource) index() {
	r.byName = make(map[string]*Field, len(r.Fields)+2)
	r.byName[IDField] = &Field{Name: IDField, Type: "uuid", ReadOnly: true}
	r.byName[CreatedAtField] = &Field{Name: CreatedAtField, Column: "created_at", Type: "time", ReadOnly: true}
	for _, f := range r.Fields {
		r.byName[f.Name] = f
	}
}
