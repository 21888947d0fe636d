package screen

import (
	"time"

	"github.com/raushankrgupta/fitly-client/models"
	"github.com/rs/zerolog/log"
)

func pairKey(person, garment *models.ImageAsset) string {
	if person == nil || garment == nil {
		return ""
	}
	return person.ID + "|" + garment.ID
}

// rescheduleAutoLocked arms the one-shot submit for the current pair. A pair
// that already submitted, manually or automatically, is never armed again.
func (c *Controller) rescheduleAutoLocked() {
	c.stopAutoLocked()
	if !c.opts.AutoSubmit {
		return
	}
	key := pairKey(c.state.Person, c.state.Garment)
	if key == "" || key == c.autoFired {
		return
	}

	c.autoSeq++
	seq := c.autoSeq
	c.autoPair = key
	c.autoTimer = time.AfterFunc(c.opts.AutoSubmitDelay, func() { c.fireAuto(seq, key) })
	log.Debug().Str("pair", key).Dur("delay", c.opts.AutoSubmitDelay).Msg("Auto-submit scheduled")
}

func (c *Controller) stopAutoLocked() {
	if c.autoTimer != nil {
		c.autoTimer.Stop()
		c.autoTimer = nil
	}
	// a timer that already fired sees a newer seq and backs off
	c.autoSeq++
	c.autoPair = ""
}

func (c *Controller) fireAuto(seq uint64, key string) {
	c.mu.Lock()
	stale := c.closed || seq != c.autoSeq || key != c.autoPair ||
		key != pairKey(c.state.Person, c.state.Garment)
	if stale {
		c.mu.Unlock()
		return
	}
	c.autoTimer = nil
	c.autoPair = ""
	c.mu.Unlock()

	log.Info().Str("pair", key).Msg("Auto-submitting try-on")
	result, err := c.Submit(c.ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Auto-submit did not run")
	}
	if c.opts.OnAutoSubmit != nil {
		c.opts.OnAutoSubmit(result, err)
	}
}
