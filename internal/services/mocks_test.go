package services

import (
	"time"

	mqttLib "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/mock"

	"github.com/safetrail/sentinel-agent/pkg/identity"
	"github.com/safetrail/sentinel-agent/pkg/track"
)

// stubToken is an always-successful MQTT token.
type stubToken struct{}

func (stubToken) Wait() bool                     { return true }
func (stubToken) WaitTimeout(time.Duration) bool { return true }
func (stubToken) Error() error                   { return nil }
func (stubToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// MockMQTTClient is a mock implementation of the MQTTClient interface.
type MockMQTTClient struct {
	mock.Mock
}

func (m *MockMQTTClient) Connect() mqttLib.Token {
	args := m.Called()
	return args.Get(0).(mqttLib.Token)
}

func (m *MockMQTTClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqttLib.Token {
	args := m.Called(topic, qos, retained, payload)
	return args.Get(0).(mqttLib.Token)
}

func (m *MockMQTTClient) Subscribe(topic string, qos byte, callback mqttLib.MessageHandler) mqttLib.Token {
	args := m.Called(topic, qos, callback)
	return args.Get(0).(mqttLib.Token)
}

func (m *MockMQTTClient) Unsubscribe(topics ...string) mqttLib.Token {
	args := m.Called(topics)
	return args.Get(0).(mqttLib.Token)
}

func (m *MockMQTTClient) Disconnect(quiesce uint) {
	m.Called(quiesce)
}

// MockMessage implements mqtt.Message for testing.
type MockMessage struct {
	payload []byte
	topic   string
}

// NewMockMessage creates a new mock MQTT message.
func NewMockMessage(topic string, payload []byte) *MockMessage {
	return &MockMessage{
		payload: payload,
		topic:   topic,
	}
}

func (m *MockMessage) Payload() []byte   { return m.payload }
func (m *MockMessage) Topic() string     { return m.topic }
func (m *MockMessage) Duplicate() bool   { return false }
func (m *MockMessage) Qos() byte         { return 1 }
func (m *MockMessage) Retained() bool    { return false }
func (m *MockMessage) MessageID() uint16 { return 1 }
func (m *MockMessage) Ack()              {}

// MockTouristInfo is a mock implementation of the TouristInfoInterface.
type MockTouristInfo struct {
	mock.Mock
}

func (m *MockTouristInfo) LoadTouristInfo() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockTouristInfo) SaveTouristID(touristID string) error {
	args := m.Called(touristID)
	return args.Error(0)
}

func (m *MockTouristInfo) GetTouristID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockTouristInfo) GetTouristIdentity() *identity.Identity {
	args := m.Called()
	return args.Get(0).(*identity.Identity)
}

// MockPositionProvider is a mock implementation of the track.Provider
// interface.
type MockPositionProvider struct {
	mock.Mock
}

func (m *MockPositionProvider) GetPosition() (track.Position, error) {
	args := m.Called()
	return args.Get(0).(track.Position), args.Error(1)
}

func (m *MockPositionProvider) Close() error {
	args := m.Called()
	return args.Error(0)
}
