// Package mqtt publishes station readings to an MQTT broker.
package mqtt

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/url"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
	"github.com/juju/errors"

	"github.com/acmurray/weatherstation/station"
)

// ClientOptsFromURL builds paho client options from an mqtt:// or mqtts://
// URL. Note: user:password in the connect URL, if set, take precedence over
// the arguments.
func ClientOptsFromURL(us, clientID, user, pass string) (*mqtt.ClientOptions, error) {
	u, err := url.Parse(us)
	if err != nil {
		return nil, errors.Trace(err)
	}

	if clientID == "" {
		clientID = fmt.Sprintf("weatherstation-%d", rand.Int31())
	}

	if u.Scheme == "mqtts" {
		u.Scheme = "tcps"
		if u.Port() == "" {
			u.Host = fmt.Sprintf("%s:%d", u.Host, 8883)
		}
	} else {
		u.Scheme = "tcp"
		if u.Port() == "" {
			u.Host = fmt.Sprintf("%s:%d", u.Host, 1883)
		}
	}
	if u.User != nil {
		user = u.User.Username()
		if passwd, isset := u.User.Password(); isset {
			pass = passwd
		}
		u.User = nil
	}
	u.Path = ""
	broker := u.String()
	glog.V(1).Infof("Connecting %s to %s", clientID, broker)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetUsername(user)
	opts.SetPassword(pass)

	return opts, nil
}

// Publisher sends every consumed reading to readings topics under
// weatherstation/<deviceID>/.
type Publisher struct {
	cli   mqtt.Client
	topic string
}

// Connect dials the broker and returns a ready Publisher.
func Connect(brokerURL, clientID, deviceID string) (*Publisher, error) {
	opts, err := ClientOptsFromURL(brokerURL, clientID, "", "")
	if err != nil {
		return nil, errors.Trace(err)
	}
	opts.SetConnectionLostHandler(func(c mqtt.Client, err error) {
		glog.Errorf("MQTT connection lost: %s", err)
	})

	cli := mqtt.NewClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, errors.Annotatef(token.Error(), "MQTT connect failed")
	}

	return &Publisher{
		cli:   cli,
		topic: fmt.Sprintf("weatherstation/%s/reading", deviceID),
	}, nil
}

// Publish sends one reading as JSON at QoS 0.
func (p *Publisher) Publish(r station.Reading) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return errors.Trace(err)
	}

	token := p.cli.Publish(p.topic, 0 /* qos */, false /* retained */, payload)
	if token.Wait() && token.Error() != nil {
		return errors.Annotatef(token.Error(), "publishing to %s", p.topic)
	}
	glog.V(2).Infof("Published reading to %s", p.topic)
	return nil
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	p.cli.Disconnect(250)
}
