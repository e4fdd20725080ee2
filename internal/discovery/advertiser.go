package discovery

import (
	"fmt"
	"os"

	"github.com/grandcat/zeroconf"
)

// Advertiser advertises a revery service via mDNS
type Advertiser struct {
	server   *zeroconf.Server
	port     int
	address string
}

// NewAdvertiser creates a new Advertiser
func NewAdvertiser(port int, address string) *Advertiser {
	return &Advertiser{
		port:     port,
		address: address,
	}
}

// Start starts advertising the service
func (a *Advertiser) Start() error {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "revery"
	}

	// Instance name includes rendezvous address for easy identification
	instanceName := fmt.Sprintf("revery-%s", a.address)

	// TXT records
	txt := []string{
		fmt.Sprintf("address=%s", a.address),
		"version=1",
	}

	server, err := zeroconf.Register(
		instanceName,       // Instance name
		ServiceType,        // Service type
		ServiceDomain,      // Domain
		a.port,             // Port
		txt,                // TXT records
		nil,                // Interfaces (nil = all)
	)
	if err != nil {
		return fmt.Errorf("failed to register service: %w", err)
	}

	a.server = server

	fmt.Printf("Advertising service: %s on port %d (hostname: %s)\n", instanceName, a.port, hostname)

	return nil
}

// Stop stops advertising
func (a *Advertiser) Stop() {
	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

// UpdateAddress updates the rendezvous address
func (a *Advertiser) UpdateAddress(address string) error {
	a.Stop()
	a.address = address
	return a.Start()
}

// Port returns the advertised port
func (a *Advertiser) Port() int {
	return a.port
}

// Address returns the advertised rendezvous address
func (a *Advertiser) Address() string {
	return a.address
}

// AdvertiserConfig holds advertiser configuration
type AdvertiserConfig struct {
	Port     int
	Address string
	Name     string
	Version  string
}

// NewAdvertiserWithConfig creates an advertiser with full configuration
func NewAdvertiserWithConfig(config AdvertiserConfig) (*Advertiser, error) {
	adv := &Advertiser{
		port:     config.Port,
		address: config.Address,
	}

	if err := adv.Start(); err != nil {
		return nil, err
	}

	return adv, nil
}
