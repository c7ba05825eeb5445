package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// ErrAckTimeout is returned when the inverter does not confirm a mode
// command in time.
var ErrAckTimeout = errors.New("mode command not acknowledged")

type modeCommand struct {
	CommandID string `json:"command_id"`
	Mode      string `json:"mode"`
	Timestamp int64  `json:"timestamp"`
}

// ApplyMode publishes a mode command and waits for the inverter to
// acknowledge it on the ack topic.
func (c *Client) ApplyMode(ctx context.Context, mode string) error {
	cmdID := uuid.NewString()
	payload, err := json.Marshal(modeCommand{
		CommandID: cmdID,
		Mode:      mode,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		return err
	}

	// Register before publishing so a fast ack is never missed.
	ch := make(chan struct{}, 1)
	c.ackMu.Lock()
	c.ackChans[cmdID] = ch
	c.ackMu.Unlock()
	defer func() {
		c.ackMu.Lock()
		delete(c.ackChans, cmdID)
		c.ackMu.Unlock()
	}()

	token := c.cli.Publish(c.cfg.Topics.ModeCommand, c.cfg.qosFor("mode"), false, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("publish mode command: %w", token.Error())
	}
	c.log.Infof("sent mode command %s: %s", cmdID, mode)

	timer := time.NewTimer(time.Duration(c.cfg.AckTimeoutMS) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-ch:
		c.mu.Lock()
		c.currentMode = mode
		c.mu.Unlock()
		return nil
	case <-timer.C:
		return fmt.Errorf("command %s: %w", cmdID, ErrAckTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CurrentMode returns the mode last reported on the state topic.
func (c *Client) CurrentMode(_ context.Context) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentMode, nil
}

func (c *Client) onModeAck(_ paho.Client, msg paho.Message) {
	var m struct {
		CommandID string `json:"command_id"`
	}
	if err := json.Unmarshal(msg.Payload(), &m); err != nil {
		c.log.Errorf("decode mode ack: %v", err)
		return
	}
	c.ackMu.Lock()
	if ch, ok := c.ackChans[m.CommandID]; ok {
		select {
		case ch <- struct{}{}:
		default:
		}
		c.log.Debugf("received ack %s", m.CommandID)
	}
	c.ackMu.Unlock()
}
