package commerce

import "encoding/json"

// ---------------------------------------------------------------------------
// REST payloads (product creation, inventory levels)
// ---------------------------------------------------------------------------

type productCreateRequest struct {
	Product productPayload `json:"product"`
}

type productPayload struct {
	Title       string           `json:"title"`
	BodyHTML    string           `json:"body_html"`
	Vendor      string           `json:"vendor,omitempty"`
	ProductType string           `json:"product_type"`
	Status      string           `json:"status"`
	Variants    []variantPayload `json:"variants"`
	Images      []imagePayload   `json:"images,omitempty"`
}

type variantPayload struct {
	Option1             string `json:"option1"`
	Price               string `json:"price"`
	SKU                 string `json:"sku"`
	InventoryManagement string `json:"inventory_management"`
}

type imagePayload struct {
	// Attachment is the base64-encoded image body; Src is a previously
	// uploaded URL. Exactly one of the two is set.
	Attachment string `json:"attachment,omitempty"`
	Src        string `json:"src,omitempty"`
	Filename   string `json:"filename"`
}

type productCreateResponse struct {
	Product createdProduct `json:"product"`
}

type createdProduct struct {
	ID       int64            `json:"id"`
	Variants []createdVariant `json:"variants"`
}

type createdVariant struct {
	ID              int64  `json:"id"`
	Option1         string `json:"option1"`
	SKU             string `json:"sku"`
	InventoryItemID int64  `json:"inventory_item_id"`
}

type inventorySetRequest struct {
	InventoryItemID int64  `json:"inventory_item_id"`
	LocationID      string `json:"location_id"`
	Available       int    `json:"available"`
}

// ---------------------------------------------------------------------------
// GraphQL envelopes (staged upload protocol)
// ---------------------------------------------------------------------------

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

type userError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

type stagedUploadsCreateData struct {
	StagedUploadsCreate struct {
		StagedTargets []stagedTarget `json:"stagedTargets"`
		UserErrors    []userError    `json:"userErrors"`
	} `json:"stagedUploadsCreate"`
}

type stagedTarget struct {
	URL         string            `json:"url"`
	ResourceURL string            `json:"resourceUrl"`
	Parameters  []stagedParameter `json:"parameters"`
}

type stagedParameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type fileCreateData struct {
	FileCreate struct {
		Files []struct {
			ID    string `json:"id"`
			Image *struct {
				URL string `json:"url"`
			} `json:"image"`
		} `json:"files"`
		UserErrors []userError `json:"userErrors"`
	} `json:"fileCreate"`
}

type fileStatusData struct {
	Node *struct {
		Status string `json:"status"`
		Image  *struct {
			URL string `json:"url"`
		} `json:"image"`
	} `json:"node"`
}

type productImageQueryData struct {
	Products struct {
		Edges []struct {
			Node struct {
				ID     string `json:"id"`
				Images struct {
					Edges []struct {
						Node struct {
							ID string `json:"id"`
						} `json:"node"`
					} `json:"edges"`
				} `json:"images"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"products"`
}
