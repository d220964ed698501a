// CLAUDE:SUMMARY Blocks configured resource types on Rod pages while always letting engine scripts and styles through.
package browser

import (
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// blocklist maps CDP resource types to whether they are dropped.
type blocklist map[proto.NetworkResourceType]bool

// aliases maps config names to CDP resource types.
var aliases = map[string]proto.NetworkResourceType{
	"images": proto.NetworkResourceTypeImage,
	"image":  proto.NetworkResourceTypeImage,
	"fonts":  proto.NetworkResourceTypeFont,
	"font":   proto.NetworkResourceTypeFont,
	"media":  proto.NetworkResourceTypeMedia,
}

func newBlocklist(names []string) blocklist {
	bl := make(blocklist, len(names))
	for _, n := range names {
		if t, ok := aliases[strings.ToLower(n)]; ok {
			bl[t] = true
		}
	}
	return bl
}

func (bl blocklist) blocks(t proto.NetworkResourceType) bool { return bl[t] }

// blockResources intercepts requests and fails the blocked types.
// Fonts are only blocked when asked for explicitly: rendered math needs
// them to measure correctly.
func blockResources(page *rod.Page, bl blocklist) {
	if len(bl) == 0 {
		return
	}
	router := page.HijackRequests()
	router.MustAdd("*", func(h *rod.Hijack) {
		if bl.blocks(h.Request.Type()) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
}
