package methodinfo

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/strogmv/assembler/assembler/classes"
	"github.com/strogmv/assembler/assembler/deployment"
	"github.com/strogmv/assembler/assembler/info"
)

type fixture struct {
	loader *classes.Loader
	bean   *deployment.BeanContext
}

func newFixture(t *testing.T, kind info.BeanKind) *fixture {
	t.Helper()
	l := classes.NewAppLoader()
	defs := []classes.Definition{
		{Name: "org.acme.WidgetRemote", Interface: true, Methods: []classes.MethodDefinition{
			{Name: "doWork"},
			{Name: "compute", Params: []string{"int", "java.lang.String"}, Returns: "int"},
		}},
		{Name: "org.acme.WidgetBusinessLocal", Interface: true, Methods: []classes.MethodDefinition{
			{Name: "peek", Returns: "int"},
		}},
		{Name: "org.acme.WidgetLocal", Interface: true, Interfaces: []string{classes.EJBLocalObject}, Methods: []classes.MethodDefinition{
			{Name: "doWork"},
		}},
		{Name: "org.acme.BaseBean", Methods: []classes.MethodDefinition{
			{Name: "inherited"},
		}},
		{Name: "org.acme.WidgetBean", Super: "org.acme.BaseBean", Interfaces: []string{"org.acme.WidgetRemote", "org.acme.WidgetBusinessLocal"}, Methods: []classes.MethodDefinition{
			{Name: "doWork"},
			{Name: "doWork", Params: []string{"int"}},
			{Name: "doWork", Params: []string{"java.lang.String"}},
			{Name: "compute", Params: []string{"int", "java.lang.String"}, Returns: "int"},
			{Name: "compute", Params: []string{"java.lang.Integer", "java.lang.String"}, Returns: "int"},
			{Name: "peek", Returns: "int"},
			{Name: "batch", Params: []string{"java.lang.String[]", "org.acme.WidgetBean$Options"}},
			{Name: "secret", Modifiers: []string{"private"}},
		}},
		{Name: "org.acme.WidgetBean$Options"},
		{Name: "java.lang.Integer"},
	}
	for _, d := range defs {
		_, err := l.Define(d)
		require.NoError(t, err)
	}
	require.NoError(t, l.Link())

	b := deployment.NewBeanContext("Widget", "Widget", kind, l.MustLoad("org.acme.WidgetBean"))
	b.BusinessRemote = []*classes.Class{l.MustLoad("org.acme.WidgetRemote")}
	b.BusinessLocal = []*classes.Class{l.MustLoad("org.acme.WidgetBusinessLocal")}
	b.Local = l.MustLoad("org.acme.WidgetLocal")
	return &fixture{loader: l, bean: b}
}

func (f *fixture) method(t *testing.T, class, name string, params ...string) *classes.Method {
	t.Helper()
	types := make([]classes.TypeName, len(params))
	for i, p := range params {
		types[i] = classes.MustParseTypeName(p)
	}
	m, ok := f.loader.MustLoad(class).FindDeclared(name, types...)
	require.True(t, ok, "%s.%s not found", class, name)
	return m
}

func params(p ...string) []string {
	if p == nil {
		return []string{}
	}
	return p
}
