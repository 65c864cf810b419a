package frame

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

type statsPrinter interface {
	PrintStats(json *jwriter.ObjectState)
}

// BuildStatsString returns a JSON document describing the renderer's frame counters, the
// presentation surface, the mesh cache and each slot's descriptor pools
func (r *Renderer) BuildStatsString() string {
	writer := jwriter.NewWriter()
	json := writer.Object()

	frames := json.Name("Frames").Object()
	frames.Name("Submitted").Int(r.submitted)
	frames.Name("Skipped").Int(r.skipped)
	frames.End()

	surface := json.Name("Swapchain").Object()
	surface.Name("State").String(r.presenter.State().String())
	surface.Name("Rebuilds").Int(r.presenter.Rebuilds())
	extent := r.presenter.Extent()
	surface.Name("Width").Int(extent.Width)
	surface.Name("Height").Int(extent.Height)
	surface.End()

	meshes := json.Name("Meshes").Object()
	meshes.Name("Resident").Int(r.meshes.Len())
	meshes.Name("Transfers").Int(r.meshes.Transfers())
	meshes.Name("SceneSize").Int(r.scene.Len())
	meshes.End()

	slots := json.Name("Slots").Array()
	for _, slot := range r.slots {
		o := slots.Object()
		o.Name("Index").Int(slot.Index)
		o.Name("PendingReleases").Int(slot.Teardown.Len())
		if slot.Descriptors != nil {
			stats := slot.Descriptors.Stats()
			o.Name("ReadyPools").Int(stats.ReadyPools)
			o.Name("FullPools").Int(stats.FullPools)
			o.Name("PoolsCreated").Int(stats.PoolsCreated)
			o.Name("NextPoolSize").Int(stats.NextPoolSize)
		}
		o.End()
	}
	slots.End()

	if printer, ok := r.gpu.(statsPrinter); ok {
		device := json.Name("GPU").Object()
		printer.PrintStats(&device)
		device.End()
	}

	json.End()
	return string(writer.Bytes())
}
