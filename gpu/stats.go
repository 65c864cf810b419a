package gpu

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// PrintStats writes the context's device and resource counters into a JSON object
func (c *Context) PrintStats(json *jwriter.ObjectState) {
	json.Name("Device").String(c.deviceName)

	families := json.Name("QueueFamilies").Object()
	families.Name("Graphics").Int(c.queueFamilies.Graphics)
	families.Name("Present").Int(c.queueFamilies.Present)
	families.End()

	live := json.Name("LiveResources").Object()
	live.Name("Buffers").Int(c.liveBuffers)
	live.Name("Images").Int(c.liveImages)
	live.End()
}
