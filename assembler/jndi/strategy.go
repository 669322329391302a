package jndi

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/strogmv/assembler/assembler/classes"
	"github.com/strogmv/assembler/assembler/deployment"
	"github.com/strogmv/assembler/assembler/diag"
	"github.com/strogmv/assembler/assembler/info"
)

// Option keys read from module, application and system properties.
const (
	OptFormat          = "openejb.jndiname.format"
	OptStrategy        = "openejb.jndiname.strategy.class"
	OptFailOnCollision = "openejb.jndiname.failoncollision"
)

const (
	DefaultFormat = "{deploymentId}{interfaceType.annotationName}"
	// DefaultKey selects the template used for openejb/local and openejb/remote names.
	DefaultKey = "default"
)

// ErrUnknownStrategy reports an unregistered strategy name.
var ErrUnknownStrategy = errors.New("unknown jndi name strategy")

// Strategy computes external names for the views of one bean at a time.
type Strategy interface {
	Begin(bean *deployment.BeanContext) error
	Name(intf *classes.Class, key string, typ Interface) (string, error)
	Names(intf *classes.Class, typ Interface) (map[string]string, error)
	End()
}

// StrategyConfig is what a strategy is created from.
type StrategyConfig struct {
	Jar     *info.EjbJarInfo
	Module  *deployment.ModuleContext
	Options *info.Options
	Logger  *slog.Logger
	Warn    diag.Sink
}

// StrategyFactory creates a strategy for one ejb-jar.
type StrategyFactory func(StrategyConfig) (Strategy, error)

var strategiesMu sync.RWMutex

var strategies = map[string]StrategyFactory{
	"templated": NewTemplatedStrategy,
	"legacy":    NewLegacyStrategy,
}

var strategyAliases = map[string]string{
	"templatedstrategy":         "templated",
	"legacyaddedsuffixstrategy": "legacy",
}

// RegisterStrategy makes a strategy selectable by name.
func RegisterStrategy(name string, f StrategyFactory) {
	strategiesMu.Lock()
	strategies[strings.ToLower(name)] = f
	strategiesMu.Unlock()
}

// Strategies lists registered names.
func Strategies() []string {
	strategiesMu.RLock()
	defer strategiesMu.RUnlock()
	return slices.Sorted(maps.Keys(strategies))
}

// NewStrategy creates the strategy named by OptStrategy, "templated" when unset.
// Class-style names such as "org.apache.openejb.assembler.classic.JndiBuilder$TemplatedStrategy"
// are accepted by their simple name.
func NewStrategy(cfg StrategyConfig) (Strategy, error) {
	name := "templated"
	if cfg.Options != nil {
		name = cfg.Options.Get(OptStrategy, name)
	}
	key := strings.ToLower(name)
	if i := strings.LastIndexAny(key, ".$"); i >= 0 {
		key = key[i+1:]
	}
	if alias, ok := strategyAliases[key]; ok {
		key = alias
	}
	strategiesMu.RLock()
	f, ok := strategies[key]
	strategiesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, name)
	}
	return f(cfg)
}

// TemplatedStrategy renders names from a format template, with per-bean and
// per-interface overrides taken from the bean's jndi names.
type TemplatedStrategy struct {
	format     Template
	appContext map[string]string
	logger     *slog.Logger
	warn       diag.Sink

	templates   map[string]map[string]Template
	beanContext map[string]string
}

// NewTemplatedStrategy reads OptFormat. A colon in the format is illegal;
// everything up to it is dropped.
func NewTemplatedStrategy(cfg StrategyConfig) (Strategy, error) {
	s := &TemplatedStrategy{logger: cfg.Logger, warn: cfg.Warn, appContext: map[string]string{}}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	opts := cfg.Options
	if cfg.Module != nil && cfg.Module.Options != nil {
		opts = cfg.Module.Options
	}
	format := DefaultFormat
	if opts != nil {
		format = opts.Get(OptFormat, DefaultFormat)
		maps.Copy(s.appContext, opts.All())
	}
	if i := strings.IndexByte(format, ':'); i >= 0 {
		msg := fmt.Sprintf("illegal %s contains a colon ':'; everything before the colon will be removed, %q", OptFormat, format)
		s.logger.Error(msg)
		s.warn.Emit(diag.Warning{Kind: "jndi", Code: diag.CodeJndiFormatColon, Severity: "error", Message: msg})
		format = format[i+1:]
	}
	s.format = NewTemplate(format)

	if m := cfg.Module; m != nil {
		if m.App != nil {
			s.appContext["appName"] = m.App.ID
			s.appContext["appId"] = m.App.ID
		}
		s.appContext["moduleName"] = m.ID
		s.appContext["moduleId"] = m.ID
	}
	return s, nil
}

// Begin loads the bean's name overrides and naming context.
func (s *TemplatedStrategy) Begin(bean *deployment.BeanContext) error {
	s.templates = map[string]map[string]Template{
		"": {DefaultKey: s.format},
	}
	s.beanContext = maps.Clone(s.appContext)

	if bi := bean.Info; bi != nil {
		known := knownInterfaces(bean)
		for _, ni := range bi.JndiNames {
			intf := ni.Interface
			if intf != "" && !known[intf] {
				s.warn.Emit(diag.Warning{
					Kind:     "jndi",
					Code:     diag.CodeUnknownInterface,
					Severity: "warn",
					Bean:     bean.DeploymentID,
					Message:  fmt.Sprintf("jndi name %q names interface %s which bean %s does not expose", ni.Name, intf, bean.EjbName),
				})
			}
			if s.templates[intf] == nil {
				s.templates[intf] = map[string]Template{}
			}
			s.templates[intf][templateKey(ni.Name)] = NewTemplate(ni.Name)
		}
		maps.Copy(s.beanContext, bi.Properties)
	}

	s.beanContext["ejbType"] = string(bean.Kind)
	s.beanContext["ejbName"] = bean.EjbName
	s.beanContext["deploymentId"] = bean.DeploymentID
	if bean.BeanClass != nil {
		s.beanContext["ejbClass"] = bean.BeanClass.Name
		s.beanContext["ejbClass.simpleName"] = bean.BeanClass.SimpleName()
		s.beanContext["ejbClass.packageName"] = bean.BeanClass.PackageName()
	}
	return nil
}

// templateKey is the first path segment of an override ("local/Foo" is the
// "local" template); a name without one is the default.
func templateKey(name string) string {
	name = strings.TrimPrefix(name, "/")
	key, _, found := strings.Cut(name, "/")
	if !found {
		return DefaultKey
	}
	return key
}

func knownInterfaces(bean *deployment.BeanContext) map[string]bool {
	known := map[string]bool{}
	for _, i := range Interfaces {
		known[i.AnnotationName()] = true
	}
	add := func(c *classes.Class) {
		if c != nil {
			known[c.Name] = true
		}
	}
	add(bean.BeanClass)
	add(bean.Home)
	add(bean.Remote)
	add(bean.LocalHome)
	add(bean.Local)
	add(bean.ServiceEndpoint)
	for _, c := range bean.BusinessLocal {
		add(c)
	}
	for _, c := range bean.BusinessRemote {
		add(c)
	}
	return known
}

// Name renders the name of one view. Overrides for the interface class win
// over overrides for the view category, which win over bean-wide ones.
func (s *TemplatedStrategy) Name(intf *classes.Class, key string, typ Interface) (string, error) {
	set, ok := s.templates[intf.Name]
	if !ok {
		set, ok = s.templates[typ.AnnotationName()]
	}
	if !ok {
		set = s.templates[""]
	}

	t, ok := set[key]
	if !ok {
		t, ok = set[DefaultKey]
	}
	if !ok {
		t = set[slices.Sorted(maps.Keys(set))[0]]
	}

	values := maps.Clone(s.beanContext)
	values["interfaceType"] = typ.AnnotationName()
	values["interfaceType.annotationName"] = typ.AnnotationName()
	values["interfaceType.annotationNameLC"] = strings.ToLower(typ.AnnotationName())
	values["interfaceType.xmlName"] = typ.XMLName()
	values["interfaceType.xmlNameCc"] = typ.XMLNameCC()
	values["interfaceType.openejbLegacyName"] = typ.LegacyName()
	values["interfaceClass"] = intf.Name
	values["interfaceClass.simpleName"] = intf.SimpleName()
	values["interfaceClass.packageName"] = intf.PackageName()
	return t.Apply(values)
}

var templatedKeys = []string{DefaultKey, "local", "global", "app"}

// Names renders the default, local, global and app names of one view.
func (s *TemplatedStrategy) Names(intf *classes.Class, typ Interface) (map[string]string, error) {
	out := make(map[string]string, len(templatedKeys))
	for _, key := range templatedKeys {
		n, err := s.Name(intf, key, typ)
		if err != nil {
			return nil, err
		}
		out[key] = n
	}
	return out, nil
}

func (s *TemplatedStrategy) End() {
	s.templates = nil
	s.beanContext = nil
}

// LegacyStrategy names views by deployment id plus a fixed suffix.
type LegacyStrategy struct {
	id string
}

func NewLegacyStrategy(StrategyConfig) (Strategy, error) { return &LegacyStrategy{}, nil }

func (s *LegacyStrategy) Begin(bean *deployment.BeanContext) error {
	s.id = strings.TrimPrefix(bean.DeploymentID, "/")
	return nil
}

func (s *LegacyStrategy) Name(_ *classes.Class, _ string, typ Interface) (string, error) {
	switch typ {
	case LocalHome:
		return s.id + "Local", nil
	case BusinessLocal:
		return s.id + "BusinessLocal", nil
	case BusinessRemote:
		return s.id + "BusinessRemote", nil
	}
	return s.id, nil
}

func (s *LegacyStrategy) Names(intf *classes.Class, typ Interface) (map[string]string, error) {
	n, err := s.Name(intf, DefaultKey, typ)
	if err != nil {
		return nil, err
	}
	return map[string]string{DefaultKey: n}, nil
}

func (s *LegacyStrategy) End() { s.id = "" }
