// Package viewer is the interactive school ecological map viewer.
//
// A [Viewer] is mounted with a [Config] holding everything it needs: the
// plant list, a map from plant id to resolved photo reference, the base map
// reference and the viewport size. It never reads files or caches itself.
//
// # Components
//
// The viewer composes four leaf packages:
//   - [geometry]: the clamped pan/zoom transform and screen/image conversion
//   - [marker]: percentage-anchored marker placement gated on image metadata
//   - [selection]: the Idle/Showing state machine with a back-stack
//   - [detail]: the escaped-by-construction plant panel, built on [markup]
//
// # Inputs
//
// Hosts translate their native events into method calls (or [Event] values
// passed to [Viewer.Dispatch]) and redraw from [Viewer.Frame]:
//
//	v, err := viewer.Mount(viewer.Config{Plants: list, Photos: photos, MapImage: ref})
//	if err != nil {
//	    return err
//	}
//	v.ImageLoaded(1400, 900)
//	v.ClickMarker("p1")
//	frame := v.Frame()
//
// Marker clicks and list selections differ on re-selection: clicking the
// shown marker closes the panel, choosing the shown plant in the list does
// nothing. Entering a plant recentres its marker without changing zoom.
//
// A single drag session exists at a time. A click that arrives after the
// pointer travelled more than [DragSlop] pixels is swallowed, so panning the
// map never clears the selection. Wheel events zoom only with a modifier.
//
// State is transient: it lives as long as the Viewer and is never persisted.
package viewer
