package plugin

// Wire types for the container engine's volume-plugin protocol. Field
// names and JSON shapes mirror the engine's own vendored plugin helper
// library exactly; this package does not import it so that the
// transport below (listener adoption, body-size cap) can diverge from
// what that library provides.

const (
	activatePath     = "/Plugin.Activate"
	createPath       = "/VolumeDriver.Create"
	removePath       = "/VolumeDriver.Remove"
	mountPath        = "/VolumeDriver.Mount"
	unmountPath      = "/VolumeDriver.Unmount"
	pathPath         = "/VolumeDriver.Path"
	getPath          = "/VolumeDriver.Get"
	listPath         = "/VolumeDriver.List"
	capabilitiesPath = "/VolumeDriver.Capabilities"
)

const contentType = "application/vnd.docker.plugins.v1.1+json"

type activateResponse struct {
	Implements []string
}

type createRequest struct {
	Name string
	Opts map[string]string
}

type removeRequest struct {
	Name string
}

type mountRequest struct {
	Name string
	ID   string
}

type mountResponse struct {
	Mountpoint string
}

type unmountRequest struct {
	Name string
	ID   string
}

type pathRequest struct {
	Name string
}

type pathResponse struct {
	Mountpoint string
}

type getRequest struct {
	Name string
}

type wireVolume struct {
	Name       string
	Mountpoint *string
	CreatedAt  *string
	Status     map[string]interface{}
}

type getResponse struct {
	Volume *wireVolume
}

type listResponse struct {
	Volumes []*wireVolume
}

type capability struct {
	Scope string
}

type capabilitiesResponse struct {
	Capabilities capability
}

type errorResponse struct {
	Err string
}
