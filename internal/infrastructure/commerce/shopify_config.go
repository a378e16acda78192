package commerce

import (
	"fmt"
	"strings"
	"time"
)

// ShopifyConfig holds everything the adapter needs to reach one store.
type ShopifyConfig struct {
	// StoreURL is the bare store host, e.g. "my-store.myshopify.com".
	StoreURL    string
	AccessToken string

	// RESTVersion is the Admin REST API version for product/inventory calls.
	RESTVersion string
	// GraphQLVersion is the Admin GraphQL API version for staged uploads.
	GraphQLVersion string

	TimeoutSeconds int

	// LocationIDs maps a branch chat identity to its inventory location id.
	LocationIDs map[string]string
}

// Validate checks the configuration is complete enough to publish.
func (c *ShopifyConfig) Validate() error {
	if c.StoreURL == "" {
		return fmt.Errorf("shopify: store URL is required")
	}
	if c.AccessToken == "" {
		return fmt.Errorf("shopify: access token is required")
	}
	if len(c.LocationIDs) == 0 {
		return fmt.Errorf("shopify: at least one branch location mapping is required")
	}
	for branch, location := range c.LocationIDs {
		if location == "" {
			return fmt.Errorf("shopify: branch %q has no location id", branch)
		}
	}
	return nil
}

func (c *ShopifyConfig) restVersion() string {
	if c.RESTVersion == "" {
		return "2023-10"
	}
	return c.RESTVersion
}

func (c *ShopifyConfig) graphqlVersion() string {
	if c.GraphQLVersion == "" {
		return "2024-04"
	}
	return c.GraphQLVersion
}

func (c *ShopifyConfig) timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *ShopifyConfig) baseURL() string {
	host := strings.TrimSuffix(c.StoreURL, "/")
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return host
	}
	return "https://" + host
}

// ProductCreateURL returns the REST endpoint for product creation.
func (c *ShopifyConfig) ProductCreateURL() string {
	return fmt.Sprintf("%s/admin/api/%s/products.json", c.baseURL(), c.restVersion())
}

// InventorySetURL returns the REST endpoint for setting inventory levels.
func (c *ShopifyConfig) InventorySetURL() string {
	return fmt.Sprintf("%s/admin/api/%s/inventory_levels/set.json", c.baseURL(), c.restVersion())
}

// GraphQLURL returns the Admin GraphQL endpoint.
func (c *ShopifyConfig) GraphQLURL() string {
	return fmt.Sprintf("%s/admin/api/%s/graphql.json", c.baseURL(), c.graphqlVersion())
}
