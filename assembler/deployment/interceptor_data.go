package deployment

import "github.com/strogmv/assembler/assembler/classes"

// Phase is an interception point of a bean's life.
type Phase string

const (
	AroundInvoke     Phase = "aroundInvoke"
	AroundTimeout    Phase = "aroundTimeout"
	PostConstruct    Phase = "postConstruct"
	PreDestroy       Phase = "preDestroy"
	PostActivate     Phase = "postActivate"
	PrePassivate     Phase = "prePassivate"
	AfterBegin       Phase = "afterBegin"
	BeforeCompletion Phase = "beforeCompletion"
	AfterCompletion  Phase = "afterCompletion"
)

// Phases lists every phase in a stable order.
var Phases = []Phase{
	AroundInvoke, AroundTimeout, PostConstruct, PreDestroy,
	PostActivate, PrePassivate, AfterBegin, BeforeCompletion, AfterCompletion,
}

// InterceptorData is the resolved callback surface of one interceptor class,
// or of the bean acting as its own interceptor.
type InterceptorData struct {
	Class   *classes.Class
	methods map[Phase][]*classes.Method
}

func NewInterceptorData(class *classes.Class) *InterceptorData {
	return &InterceptorData{Class: class, methods: map[Phase][]*classes.Method{}}
}

// Add appends callback methods for a phase, skipping ones already present.
func (d *InterceptorData) Add(p Phase, methods ...*classes.Method) {
	for _, m := range methods {
		dup := false
		for _, have := range d.methods[p] {
			if have == m {
				dup = true
				break
			}
		}
		if !dup {
			d.methods[p] = append(d.methods[p], m)
		}
	}
}

// Methods returns the callbacks for a phase in invocation order.
func (d *InterceptorData) Methods(p Phase) []*classes.Method {
	return d.methods[p]
}

// Empty reports whether no phase has callbacks.
func (d *InterceptorData) Empty() bool {
	for _, ms := range d.methods {
		if len(ms) > 0 {
			return false
		}
	}
	return true
}

func (d *InterceptorData) String() string {
	if d == nil || d.Class == nil {
		return "<nil>"
	}
	return d.Class.Name
}

// ClassNames renders a chain as class names, outermost first.
func ClassNames(chain []*InterceptorData) []string {
	out := make([]string, len(chain))
	for i, d := range chain {
		out[i] = d.String()
	}
	return out
}
