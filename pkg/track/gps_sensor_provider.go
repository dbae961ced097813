package track

import (
	"bufio"
	"errors"
	"strings"
	"sync"

	"github.com/adrianmo/go-nmea"
	"github.com/tarm/serial"
)

// maxSentencesPerFix bounds how many NMEA sentences a single position read
// will scan before giving up. A GGA sentence normally arrives once a second.
const maxSentencesPerFix = 64

// GPSSensorProvider reads positions from a GPS device connected via a serial
// port. The port is opened lazily on the first read and kept open until
// Close.
type GPSSensorProvider struct {
	port     string
	baudRate int

	mu   sync.Mutex
	conn *serial.Port
}

// NewGPSSensorProvider creates a new GPSSensorProvider for the given serial
// port and baud rate.
func NewGPSSensorProvider(port string, baudRate int) *GPSSensorProvider {
	return &GPSSensorProvider{
		port:     port,
		baudRate: baudRate,
	}
}

// GetPosition scans the NMEA stream for the next GGA sentence and returns
// the fix it carries.
func (g *GPSSensorProvider) GetPosition() (Position, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.conn == nil {
		conn, err := serial.OpenPort(&serial.Config{Name: g.port, Baud: g.baudRate})
		if err != nil {
			return Position{}, err
		}
		g.conn = conn
	}

	scanner := bufio.NewScanner(g.conn)
	for i := 0; i < maxSentencesPerFix && scanner.Scan(); i++ {
		line := scanner.Text()
		if !strings.HasPrefix(line, "$GPGGA") {
			continue
		}

		sentence, err := nmea.Parse(line)
		if err != nil {
			continue // garbled sentence, wait for the next one
		}

		gga, ok := sentence.(nmea.GGA)
		if !ok {
			continue
		}

		return Position{
			Latitude:  gga.Latitude,
			Longitude: gga.Longitude,
			Accuracy:  float64(gga.HDOP), // HDOP as a proxy for accuracy
		}, nil
	}

	if err := scanner.Err(); err != nil {
		return Position{}, err
	}

	return Position{}, errors.New("no valid GPS fix found")
}

// Close releases the serial port.
func (g *GPSSensorProvider) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.conn == nil {
		return nil
	}
	err := g.conn.Close()
	g.conn = nil
	return err
}
