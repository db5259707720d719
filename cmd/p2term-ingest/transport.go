package main

import (
	"golang.org/x/sys/unix"

	goserial "github.com/daedaluz/goserial"
)

// pollingTransport wraps a goserial.Port so Read waits on the file
// descriptor's readability via unix.Poll before issuing the underlying
// read, rather than busy-spinning the producer loop on a port that can
// return (0, nil) between bytes.
type pollingTransport struct {
	port *goserial.Port
}

func newPollingTransport(port *goserial.Port) *pollingTransport {
	return &pollingTransport{port: port}
}

func (t *pollingTransport) Read(p []byte) (int, error) {
	fds := []unix.PollFd{{Fd: int32(t.port.Fd()), Events: unix.POLLIN}}
	for {
		n, err := unix.Poll(fds, 100)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return 0, err
		}
		if n == 0 {
			// Timed out with nothing ready; give the caller a zero-read
			// tick so it can observe context cancellation.
			return 0, nil
		}
		if fds[0].Revents&unix.POLLIN != 0 {
			return t.port.Read(p)
		}
		return 0, nil
	}
}

func (t *pollingTransport) Write(p []byte) (int, error) {
	return t.port.Write(p)
}
