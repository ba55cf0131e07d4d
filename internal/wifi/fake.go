package wifi

import "time"

// FakeManager is a test double with scripted link behavior.
type FakeManager struct {
	// ConnectErrs is consumed one per Connect call; nil entries succeed.
	// When exhausted, Connect succeeds.
	ConnectErrs []error

	// LinkStates is consumed one per IsConnected call; the last entry
	// repeats once exhausted. Empty means always connected.
	LinkStates []bool

	// APIP and APErr control StartAP.
	APIP  string
	APErr error

	Connects   []string // SSIDs passed to Connect
	APStarts   int
	Closed     bool
	linkCalls  int
	connectIdx int
}

var _ Manager = (*FakeManager)(nil)

func (f *FakeManager) Connect(ssid, password string, timeout time.Duration) error {
	f.Connects = append(f.Connects, ssid)
	if f.connectIdx < len(f.ConnectErrs) {
		err := f.ConnectErrs[f.connectIdx]
		f.connectIdx++
		return err
	}
	return nil
}

func (f *FakeManager) IsConnected() bool {
	if len(f.LinkStates) == 0 {
		return true
	}
	i := f.linkCalls
	if i >= len(f.LinkStates) {
		i = len(f.LinkStates) - 1
	}
	f.linkCalls++
	return f.LinkStates[i]
}

func (f *FakeManager) StartAP(ssid, password string) (string, error) {
	f.APStarts++
	if f.APErr != nil {
		return "", f.APErr
	}
	if f.APIP == "" {
		return "10.42.0.1", nil
	}
	return f.APIP, nil
}

func (f *FakeManager) Close() error {
	f.Closed = true
	return nil
}
