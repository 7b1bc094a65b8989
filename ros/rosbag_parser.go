// Package ros reads range scans and camera images out of ROS bags.
package ros

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/edaniels/gobag/rosbag"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// ReadBag reads the contents of a rosbag into a gobag data structure.
func ReadBag(filename string) (*rosbag.RosBag, error) {
	//nolint:gosec
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open input file")
	}
	defer utils.UncheckedErrorFunc(f.Close)

	rb := rosbag.NewRosBag()

	if err := rb.Read(f); err != nil {
		return nil, errors.Wrapf(err, "unable to create ros bag, error")
	}

	return rb, nil
}

// TopicKey returns the key gobag files a topic's JSON lines under: lower case,
// without the leading slash and with the remaining slashes replaced by underscores.
func TopicKey(topic string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(topic, "/"), "/", "_"))
}

// AllMessagesForTopic returns all messages for a specific topic in the ros bag as raw JSON
// objects holding "meta" and "data" keys.
func AllMessagesForTopic(rb *rosbag.RosBag, topic string) ([]json.RawMessage, error) {
	if err := rb.ParseTopicsToJSON(
		"",
		func(int64) bool { return true },
		func(t string) bool { return t == topic },
		false,
	); err != nil {
		return nil, errors.Wrapf(err, "error while parsing bag to JSON")
	}

	msgs := rb.TopicsAsJSON[TopicKey(topic)]
	if msgs == nil {
		return nil, errors.Errorf("no messages for topic %s", topic)
	}
	return splitMessages(msgs)
}

// splitMessages reads newline separated JSON objects.
func splitMessages(r io.Reader) ([]json.RawMessage, error) {
	var all []json.RawMessage
	dec := json.NewDecoder(r)
	for {
		var msg json.RawMessage
		if err := dec.Decode(&msg); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		all = append(all, bytes.TrimSpace(msg))
	}
	return all, nil
}

// LastMessageForTopic decodes the final message on topic into out.
func LastMessageForTopic(rb *rosbag.RosBag, topic string, out interface{}) error {
	msgs, err := AllMessagesForTopic(rb, topic)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return errors.Errorf("no messages for topic %s", topic)
	}
	return json.Unmarshal(msgs[len(msgs)-1], out)
}
