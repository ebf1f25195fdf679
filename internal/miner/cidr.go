package miner

import (
	"fmt"
	"net"
)

// DefaultMinPrefixLen is the widest subnet accepted when no limit is configured.
const DefaultMinPrefixLen = 16

// ExpandCIDR expands an IPv4 CIDR notation into a slice of IP addresses.
// Skips network and broadcast addresses for networks larger than /31. Subnets wider
// than /minPrefixLen are rejected with ErrSubnetTooLarge.
func ExpandCIDR(cidr string, minPrefixLen int) ([]string, error) {
	baseIP, ipnet, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, err
	}
	if baseIP.To4() == nil {
		return nil, fmt.Errorf("%s: %w", cidr, ErrNotIPv4)
	}
	if minPrefixLen <= 0 {
		minPrefixLen = DefaultMinPrefixLen
	}

	ones, bits := ipnet.Mask.Size()
	if ones < minPrefixLen {
		return nil, fmt.Errorf("%s is wider than /%d: %w", cidr, minPrefixLen, ErrSubnetTooLarge)
	}
	skipEdges := bits-ones > 1

	var ips []string
	for ip := baseIP.Mask(ipnet.Mask); ipnet.Contains(ip); incIP(ip) {
		if skipEdges && (ip.Equal(ipnet.IP) || isBroadcast(ip, ipnet)) {
			continue
		}
		ips = append(ips, ip.String())
	}
	return ips, nil
}

// incIP increments an IP address in place.
func incIP(ip net.IP) {
	for i := len(ip) - 1; i >= 0; i-- {
		ip[i]++
		if ip[i] != 0 {
			break
		}
	}
}

func isBroadcast(ip net.IP, ipnet *net.IPNet) bool {
	broadcast := make(net.IP, len(ip))
	for i := range ip {
		broadcast[i] = ipnet.IP[i] | ^ipnet.Mask[i]
	}
	return ip.Equal(broadcast)
}
