package kommo

type leadRequest struct {
	Name       string              `json:"name"`
	StatusID   int                 `json:"status_id,omitempty"`
	Price      int                 `json:"price"`
	CustomData []customFieldValues `json:"custom_fields_values,omitempty"`
	Embedded   leadEmbedded        `json:"_embedded"`
}

type leadEmbedded struct {
	Tags     []tag   `json:"tags"`
	Contacts []idRef `json:"contacts,omitempty"`
}

type contactRequest struct {
	Name         string              `json:"name"`
	CustomFields []customFieldValues `json:"custom_fields_values"`
}

type customFieldValues struct {
	FieldCode string       `json:"field_code"`
	Values    []fieldValue `json:"values"`
}

type fieldValue struct {
	Value    string `json:"value"`
	EnumCode string `json:"enum_code,omitempty"`
}

type tag struct {
	Name string `json:"name"`
}

type idRef struct {
	ID int `json:"id"`
}

type embeddedResponse struct {
	Embedded struct {
		Leads    []idRef `json:"leads"`
		Contacts []idRef `json:"contacts"`
	} `json:"_embedded"`
}
