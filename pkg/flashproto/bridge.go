package flashproto

import (
	"fmt"
	"io"
	"net"

	"go.bug.st/serial"
)

// writeCommands carries its payload from host to probe in the request
// packet; everything else carries it (if any) from probe to host in the
// response packet. The bridge needs this distinction to know which side of
// the wire to read the data payload from.
var writeCommands = map[byte]bool{
	CmdWriteMem8:  true,
	CmdWriteMem32: true,
	CmdWriteRegs:  true,
}

// Bridge relays this package's framing between a TCP listener and a serial
// debug probe, for hosts that can't open the probe's serial port directly
// (e.g. the probe is attached to a different machine on the network).
type Bridge struct {
	tcpHost    string
	tcpPort    int
	serialPort string
	baudRate   int
	timeout    int
}

// NewBridge creates a new TCP bridge.
func NewBridge(tcpHost string, tcpPort int, serialPort string, baudRate int, timeout int) *Bridge {
	return &Bridge{
		tcpHost:    tcpHost,
		tcpPort:    tcpPort,
		serialPort: serialPort,
		baudRate:   baudRate,
		timeout:    timeout,
	}
}

// Listen starts the TCP server and relays messages to the serial port.
func (b *Bridge) Listen() error {
	addr := fmt.Sprintf("%s:%d", b.tcpHost, b.tcpPort)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start TCP listener: %w", err)
	}
	defer listener.Close()

	fmt.Printf("Listening for connections to %s on port %d\n", b.tcpHost, b.tcpPort)

	for {
		conn, err := listener.Accept()
		if err != nil {
			fmt.Printf("Error accepting connection: %v\n", err)
			continue
		}

		fmt.Printf("Received connection from %s\n", conn.RemoteAddr().String())
		go b.handleConnection(conn)
	}
}

func (b *Bridge) handleConnection(tcpConn net.Conn) {
	defer tcpConn.Close()

	for {
		syncByte := make([]byte, 1)
		if _, err := io.ReadFull(tcpConn, syncByte); err != nil {
			if err != io.EOF {
				fmt.Printf("Error reading sync byte: %v\n", err)
			} else {
				fmt.Printf("Connection from %s closed\n", tcpConn.RemoteAddr().String())
			}
			return
		}
		if syncByte[0] != RequestSyncByte {
			fmt.Printf("Unexpected sync byte 0x%X, dropping connection\n", syncByte[0])
			return
		}

		header := make([]byte, 7)
		if _, err := io.ReadFull(tcpConn, header); err != nil {
			fmt.Printf("Error reading header: %v\n", err)
			return
		}

		command := header[0]
		length := uint16(header[5])<<8 | uint16(header[6])

		var data []byte
		if writeCommands[command] {
			data = make([]byte, length)
			if _, err := io.ReadFull(tcpConn, data); err != nil {
				fmt.Printf("Error reading data: %v\n", err)
				return
			}
		}

		lrcByte := make([]byte, 1)
		if _, err := io.ReadFull(tcpConn, lrcByte); err != nil {
			fmt.Printf("Error reading LRC: %v\n", err)
			return
		}

		request := make([]byte, 0, 1+len(header)+len(data)+1)
		request = append(request, syncByte...)
		request = append(request, header...)
		request = append(request, data...)
		request = append(request, lrcByte...)

		mode := &serial.Mode{BaudRate: b.baudRate}
		serialConn, err := serial.Open(b.serialPort, mode)
		if err != nil {
			fmt.Printf("Error opening serial port: %v\n", err)
			return
		}

		numWritten, err := serialConn.Write(request)
		if err != nil {
			serialConn.Close()
			fmt.Printf("Error writing to serial port: %v\n", err)
			return
		}
		if numWritten != len(request) {
			serialConn.Close()
			fmt.Printf("Serial write error: wrote %d bytes, expected %d\n", numWritten, len(request))
			return
		}

		responseSyncByte := make([]byte, 1)
		if _, err := io.ReadFull(serialConn, responseSyncByte); err != nil {
			serialConn.Close()
			fmt.Printf("Error reading response sync: %v\n", err)
			return
		}

		responseStatusBytes := make([]byte, 2)
		if _, err := io.ReadFull(serialConn, responseStatusBytes); err != nil {
			serialConn.Close()
			fmt.Printf("Error reading status bytes: %v\n", err)
			return
		}

		var responseData []byte
		if !writeCommands[command] && length > 0 {
			responseData = make([]byte, length)
			if _, err := io.ReadFull(serialConn, responseData); err != nil {
				serialConn.Close()
				fmt.Printf("Error reading response data: %v\n", err)
				return
			}
		}

		responseLrcByte := make([]byte, 1)
		if _, err := io.ReadFull(serialConn, responseLrcByte); err != nil {
			serialConn.Close()
			fmt.Printf("Error reading response LRC: %v\n", err)
			return
		}

		serialConn.Close()

		response := make([]byte, 0, 1+2+len(responseData)+1)
		response = append(response, responseSyncByte...)
		response = append(response, responseStatusBytes...)
		response = append(response, responseData...)
		response = append(response, responseLrcByte...)

		if _, err := tcpConn.Write(response); err != nil {
			fmt.Printf("Error writing response to TCP: %v\n", err)
			return
		}
	}
}
