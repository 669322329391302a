package deployment

import (
	"github.com/strogmv/assembler/assembler/classes"
	"github.com/strogmv/assembler/assembler/info"
)

// AppContext is the assembled form of an application.
type AppContext struct {
	ID         string
	Standalone bool
	Options    *info.Options
	Modules    []*ModuleContext
}

// Beans lists every bean of the application in module order.
func (a *AppContext) Beans() []*BeanContext {
	var out []*BeanContext
	for _, m := range a.Modules {
		out = append(out, m.Beans...)
	}
	return out
}

// ModuleContext is the assembled form of one ejb module.
type ModuleContext struct {
	ID      string
	URI     string
	App     *AppContext
	Loader  *classes.Loader
	Options *info.Options
	Beans   []*BeanContext
}

// Bean finds a bean of the module by ejb name.
func (m *ModuleContext) Bean(ejbName string) (*BeanContext, bool) {
	for _, b := range m.Beans {
		if b.EjbName == ejbName {
			return b, true
		}
	}
	return nil, false
}
