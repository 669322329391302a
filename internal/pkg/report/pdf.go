package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/strogmv/assembler/assembler"
)

// Generator generates PDF reports.
type Generator struct {
	now func() time.Time
}

// NewGenerator creates a new report generator.
func NewGenerator() *Generator {
	return &Generator{now: time.Now}
}

// Bean is one row of the deployment table.
type Bean struct {
	DeploymentID string
	Kind         string
	Container    string
	Names        []string
	References   int
}

// Data is everything a deployment report shows.
type Data struct {
	AppID    string
	Path     string
	RunID    string
	Beans    []Bean
	Warnings []string
	Failures []assembler.DeploymentFailure
}

// FromApplication collects report data from a deployed application and
// the failures the assembler remembers.
func FromApplication(app *assembler.Application, failures []assembler.DeploymentFailure) Data {
	d := Data{AppID: app.ID(), Path: app.Info.Path, RunID: app.RunID, Failures: failures}
	names := map[string][]string{}
	for _, bb := range app.Bindings() {
		for _, n := range bb.JndiNames {
			names[bb.DeploymentID] = append(names[bb.DeploymentID], n.Name)
		}
	}
	for _, b := range app.Beans() {
		d.Beans = append(d.Beans, Bean{
			DeploymentID: b.DeploymentID,
			Kind:         string(b.Kind),
			Container:    b.ContainerID,
			Names:        names[b.DeploymentID],
			References:   len(b.References()),
		})
	}
	for _, w := range app.Warnings {
		d.Warnings = append(d.Warnings, fmt.Sprintf("[%s] %s", w.Code, w.Message))
	}
	return d
}

// GenerateDeploymentReport renders the report of one application.
func (g *Generator) GenerateDeploymentReport(data Data) ([]byte, error) {
	m := maroto.New()

	// Header
	m.AddRows(
		row.New(20).Add(
			col.New(12).Add(
				text.New("DEPLOYMENT REPORT", props.Text{
					Align: align.Center,
					Size:  20,
					Style: fontstyle.Bold,
				}),
			),
		),
		row.New(10).Add(
			col.New(12).Add(
				text.New(fmt.Sprintf("Application: %s (%s)", data.AppID, data.Path), props.Text{
					Align: align.Center,
					Size:  12,
				}),
			),
		),
		row.New(8).Add(
			col.New(6).Add(text.New("Run: "+data.RunID, props.Text{Size: 8})),
			col.New(6).Add(text.New(g.now().UTC().Format(time.RFC3339), props.Text{Size: 8, Align: align.Right})),
		),
	)

	// Beans Table
	m.AddRows(
		row.New(15).Add(
			col.New(12).Add(
				text.New("DEPLOYMENTS", props.Text{Style: fontstyle.Bold, Top: 5}),
			),
		),
		row.New(8).Add(
			col.New(3).Add(text.New("Deployment", props.Text{Style: fontstyle.Bold})),
			col.New(2).Add(text.New("Kind", props.Text{Style: fontstyle.Bold})),
			col.New(3).Add(text.New("Container", props.Text{Style: fontstyle.Bold})),
			col.New(3).Add(text.New("JNDI names", props.Text{Style: fontstyle.Bold})),
			col.New(1).Add(text.New("Refs", props.Text{Style: fontstyle.Bold})),
		),
	)
	for _, b := range data.Beans {
		height := float64(6 * max(1, len(b.Names)))
		m.AddRows(
			row.New(height).Add(
				col.New(3).Add(text.New(b.DeploymentID)),
				col.New(2).Add(text.New(b.Kind)),
				col.New(3).Add(text.New(b.Container)),
				col.New(3).Add(text.New(strings.Join(b.Names, "\n"), props.Text{Size: 7})),
				col.New(1).Add(text.New(fmt.Sprint(b.References))),
			),
		)
	}

	if len(data.Warnings) > 0 {
		m.AddRows(row.New(15).Add(col.New(12).Add(text.New("WARNINGS", props.Text{Style: fontstyle.Bold, Top: 5}))))
		for _, w := range data.Warnings {
			m.AddRows(row.New(6).Add(col.New(12).Add(text.New(w, props.Text{Size: 8}))))
		}
	}

	if len(data.Failures) > 0 {
		m.AddRows(row.New(15).Add(col.New(12).Add(text.New("RECENT FAILURES", props.Text{Style: fontstyle.Bold, Top: 5}))))
		for _, f := range data.Failures {
			m.AddRows(
				row.New(8).Add(
					col.New(3).Add(text.New(f.AppID)),
					col.New(3).Add(text.New(f.Code)),
					col.New(6).Add(text.New(f.Message(), props.Text{Size: 7})),
				),
			)
		}
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return doc.GetBytes(), nil
}
