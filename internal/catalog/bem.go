package catalog

import "github.com/bem-health/admin-api/internal/query"

var (
	idField        = Field{Column: "id", Name: "id"}
	createdAtField = Field{Column: "created_at", Name: "createdAt"}
	updatedAtField = Field{Column: "updated_at", Name: "updatedAt"}
)

func withTimestamps(fields ...Field) []Field {
	out := append([]Field{idField}, fields...)
	return append(out, createdAtField, updatedAtField)
}

func enumValues(values ...string) map[string]any {
	out := make(map[string]any, len(values))
	for _, v := range values {
		out[v] = v
	}
	return out
}

var activeValues = map[string]any{"active": true, "inactive": false}

func baseSorts(extra map[string]string) map[string]string {
	out := map[string]string{
		"createdAt": "created_at",
		"updatedAt": "updated_at",
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

var (
	userStatuses         = []string{"active", "banned"}
	genders              = []string{"male", "female", "unknown"}
	doctorStatuses       = []string{"online", "offline", "disabled"}
	productStatuses      = []string{"on_sale", "off_sale"}
	orderStatuses        = []string{"pending", "paid", "shipped", "completed", "cancelled", "refunded"}
	consultationTypes    = []string{"text", "video", "phone"}
	consultationStatuses = []string{"pending", "ongoing", "completed", "cancelled"}
	articleStatuses      = []string{"draft", "published", "archived"}
	carouselPositions    = []string{"home", "mall", "health"}
)

// Users are end users of the consumer apps.
var Users = &Definition{
	Name:  "users",
	Label: "user",
	Table: "users",
	Fields: withTimestamps(
		Field{Column: "username", Name: "username", Kind: KindString, CreateOnly: true, Required: true},
		Field{Column: "nickname", Name: "nickname", Kind: KindString, Writable: true},
		Field{Column: "phone", Name: "phone", Kind: KindString, Writable: true},
		Field{Column: "avatar_url", Name: "avatarUrl", Kind: KindString, Writable: true},
		Field{Column: "gender", Name: "gender", Kind: KindString, Writable: true, Enum: genders},
		Field{Column: "status", Name: "status", Kind: KindString, Writable: true, Enum: userStatuses},
		Field{Column: "last_login_at", Name: "lastLoginAt"},
	),
	List: query.Spec{
		SearchColumns: []string{"username", "nickname", "phone"},
		EnumFilters: []query.EnumFilter{
			{Param: "status", Column: "status", Values: enumValues(userStatuses...)},
			{Param: "gender", Column: "gender", Values: enumValues(genders...)},
		},
		DateColumn: "created_at",
		SortFields: baseSorts(map[string]string{"username": "username", "lastLoginAt": "last_login_at"}),
	},
	ReadGate:  "admin",
	WriteGate: "admin",
}

// Departments are hospital departments doctors belong to.
var Departments = &Definition{
	Name:  "departments",
	Label: "department",
	Table: "departments",
	Fields: withTimestamps(
		Field{Column: "name", Name: "name", Kind: KindString, Writable: true, Required: true},
		Field{Column: "description", Name: "description", Kind: KindString, Writable: true},
		Field{Column: "icon_url", Name: "iconUrl", Kind: KindString, Writable: true},
		Field{Column: "sort_order", Name: "sortOrder", Kind: KindInt, Writable: true},
		Field{Column: "is_active", Name: "isActive", Kind: KindBool, Writable: true},
	),
	List: query.Spec{
		SearchColumns: []string{"name", "description"},
		EnumFilters: []query.EnumFilter{
			{Param: "status", Column: "is_active", Values: activeValues},
		},
		DateColumn: "created_at",
		SortFields: baseSorts(map[string]string{"name": "name", "sortOrder": "sort_order"}),
	},
	ReadGate:  "medical",
	WriteGate: "medical",
	Public:    []query.Filter{{Column: "is_active", Value: true}},
}

// Doctors are practitioners available for consultations.
var Doctors = &Definition{
	Name:  "doctors",
	Label: "doctor",
	Table: "doctors",
	Fields: withTimestamps(
		Field{Column: "name", Name: "name", Kind: KindString, Writable: true, Required: true},
		Field{Column: "title", Name: "title", Kind: KindString, Writable: true},
		Field{Column: "department_id", Name: "departmentId", Kind: KindString, Writable: true, Required: true},
		Field{Column: "hospital", Name: "hospital", Kind: KindString, Writable: true},
		Field{Column: "specialty", Name: "specialty", Kind: KindString, Writable: true},
		Field{Column: "avatar_url", Name: "avatarUrl", Kind: KindString, Writable: true},
		Field{Column: "introduction", Name: "introduction", Kind: KindString, Writable: true},
		Field{Column: "consultation_fee", Name: "consultationFee", Kind: KindNumber, Writable: true},
		Field{Column: "rating", Name: "rating"},
		Field{Column: "status", Name: "status", Kind: KindString, Writable: true, Enum: doctorStatuses},
	),
	List: query.Spec{
		SearchColumns: []string{"name", "hospital", "specialty"},
		EnumFilters: []query.EnumFilter{
			{Param: "status", Column: "status", Values: enumValues(doctorStatuses...)},
		},
		RangeFilters: []query.RangeFilter{
			{MinParam: "minFee", MaxParam: "maxFee", Column: "consultation_fee"},
		},
		DateColumn: "created_at",
		SortFields: baseSorts(map[string]string{
			"name":            "name",
			"rating":          "rating",
			"consultationFee": "consultation_fee",
		}),
	},
	ReadGate:  "medical",
	WriteGate: "medical",
}

// Products are items sold in the mall.
var Products = &Definition{
	Name:  "products",
	Label: "product",
	Table: "products",
	Fields: withTimestamps(
		Field{Column: "name", Name: "name", Kind: KindString, Writable: true, Required: true},
		Field{Column: "category", Name: "category", Kind: KindString, Writable: true},
		Field{Column: "price", Name: "price", Kind: KindNumber, Writable: true, Required: true},
		Field{Column: "stock", Name: "stock", Kind: KindInt, Writable: true},
		Field{Column: "cover_url", Name: "coverUrl", Kind: KindString, Writable: true},
		Field{Column: "description", Name: "description", Kind: KindString, Writable: true},
		Field{Column: "status", Name: "status", Kind: KindString, Writable: true, Enum: productStatuses},
		Field{Column: "sales_count", Name: "salesCount"},
	),
	List: query.Spec{
		SearchColumns: []string{"name", "category", "description"},
		EnumFilters: []query.EnumFilter{
			{Param: "status", Column: "status", Values: enumValues(productStatuses...)},
		},
		RangeFilters: []query.RangeFilter{
			{MinParam: "minPrice", MaxParam: "maxPrice", Column: "price"},
		},
		DateColumn: "created_at",
		SortFields: baseSorts(map[string]string{
			"name":       "name",
			"price":      "price",
			"stock":      "stock",
			"salesCount": "sales_count",
		}),
	},
	ReadGate:  "mall",
	WriteGate: "mall",
}

// Orders are mall purchases. Only fulfilment fields are editable.
var Orders = &Definition{
	Name:  "orders",
	Label: "order",
	Table: "orders",
	Fields: withTimestamps(
		Field{Column: "order_no", Name: "orderNo"},
		Field{Column: "user_id", Name: "userId"},
		Field{Column: "total_amount", Name: "totalAmount"},
		Field{Column: "status", Name: "status", Kind: KindString, Writable: true, Enum: orderStatuses},
		Field{Column: "receiver_name", Name: "receiverName", Kind: KindString, Writable: true},
		Field{Column: "receiver_phone", Name: "receiverPhone", Kind: KindString, Writable: true},
		Field{Column: "address", Name: "address", Kind: KindString, Writable: true},
		Field{Column: "tracking_no", Name: "trackingNo", Kind: KindString, Writable: true},
		Field{Column: "remark", Name: "remark", Kind: KindString, Writable: true},
		Field{Column: "paid_at", Name: "paidAt"},
	),
	List: query.Spec{
		SearchColumns: []string{"order_no", "receiver_name", "receiver_phone"},
		EnumFilters: []query.EnumFilter{
			{Param: "status", Column: "status", Values: enumValues(orderStatuses...)},
		},
		RangeFilters: []query.RangeFilter{
			{MinParam: "minAmount", MaxParam: "maxAmount", Column: "total_amount"},
		},
		DateColumn: "created_at",
		SortFields: baseSorts(map[string]string{"totalAmount": "total_amount", "paidAt": "paid_at"}),
	},
	ReadGate:  "mall",
	WriteGate: "mall",
}

// Consultations are patient sessions with a doctor.
var Consultations = &Definition{
	Name:  "consultations",
	Label: "consultation",
	Table: "consultations",
	Fields: withTimestamps(
		Field{Column: "user_id", Name: "userId"},
		Field{Column: "doctor_id", Name: "doctorId"},
		Field{Column: "type", Name: "type"},
		Field{Column: "status", Name: "status", Kind: KindString, Writable: true, Enum: consultationStatuses},
		Field{Column: "symptoms", Name: "symptoms"},
		Field{Column: "diagnosis", Name: "diagnosis", Kind: KindString, Writable: true},
		Field{Column: "fee", Name: "fee"},
	),
	List: query.Spec{
		SearchColumns: []string{"symptoms", "diagnosis"},
		EnumFilters: []query.EnumFilter{
			{Param: "status", Column: "status", Values: enumValues(consultationStatuses...)},
			{Param: "type", Column: "type", Values: enumValues(consultationTypes...)},
		},
		DateColumn: "created_at",
		SortFields: baseSorts(map[string]string{"fee": "fee"}),
	},
	ReadGate:  "medical",
	WriteGate: "medical",
}

// HealthRecords are measurements and notes attached to a user.
var HealthRecords = &Definition{
	Name:  "health-records",
	Label: "health record",
	Table: "health_records",
	Fields: withTimestamps(
		Field{Column: "user_id", Name: "userId", Kind: KindString, Writable: true, Required: true},
		Field{Column: "record_type", Name: "recordType", Kind: KindString, Writable: true, Required: true},
		Field{Column: "title", Name: "title", Kind: KindString, Writable: true},
		Field{Column: "content", Name: "content", Kind: KindString, Writable: true},
		Field{Column: "recorded_at", Name: "recordedAt", Kind: KindTime, Writable: true},
	),
	List: query.Spec{
		SearchColumns: []string{"title", "content", "record_type"},
		DateColumn:    "recorded_at",
		SortFields:    baseSorts(map[string]string{"recordedAt": "recorded_at"}),
	},
	ReadGate:  "medical",
	WriteGate: "medical",
}

// Articles are editorial health content.
var Articles = &Definition{
	Name:  "articles",
	Label: "article",
	Table: "articles",
	Fields: withTimestamps(
		Field{Column: "title", Name: "title", Kind: KindString, Writable: true, Required: true},
		Field{Column: "summary", Name: "summary", Kind: KindString, Writable: true},
		Field{Column: "content", Name: "content", Kind: KindString, Writable: true},
		Field{Column: "cover_url", Name: "coverUrl", Kind: KindString, Writable: true},
		Field{Column: "category", Name: "category", Kind: KindString, Writable: true},
		Field{Column: "author", Name: "author", Kind: KindString, Writable: true},
		Field{Column: "status", Name: "status", Kind: KindString, Writable: true, Enum: articleStatuses},
		Field{Column: "view_count", Name: "viewCount"},
		Field{Column: "published_at", Name: "publishedAt", Kind: KindTime, Writable: true},
	),
	List: query.Spec{
		SearchColumns: []string{"title", "summary", "author"},
		EnumFilters: []query.EnumFilter{
			{Param: "status", Column: "status", Values: enumValues(articleStatuses...)},
		},
		DateColumn: "created_at",
		SortFields: baseSorts(map[string]string{
			"title":       "title",
			"viewCount":   "view_count",
			"publishedAt": "published_at",
		}),
	},
	ReadGate:  "marketing",
	WriteGate: "marketing",
	Public:    []query.Filter{{Column: "status", Value: "published"}},
}

// CarouselImages are banner slides shown in the apps.
var CarouselImages = &Definition{
	Name:  "carousel",
	Label: "carousel image",
	Table: "carousel_images",
	Fields: withTimestamps(
		Field{Column: "title", Name: "title", Kind: KindString, Writable: true},
		Field{Column: "image_url", Name: "imageUrl", Kind: KindString, Writable: true, Required: true},
		Field{Column: "link_url", Name: "linkUrl", Kind: KindString, Writable: true},
		Field{Column: "position", Name: "position", Kind: KindString, Writable: true, Enum: carouselPositions},
		Field{Column: "sort_order", Name: "sortOrder", Kind: KindInt, Writable: true},
		Field{Column: "is_active", Name: "isActive", Kind: KindBool, Writable: true},
	),
	List: query.Spec{
		SearchColumns: []string{"title"},
		EnumFilters: []query.EnumFilter{
			{Param: "status", Column: "is_active", Values: activeValues},
			{Param: "position", Column: "position", Values: enumValues(carouselPositions...)},
		},
		DateColumn: "created_at",
		SortFields: baseSorts(map[string]string{"sortOrder": "sort_order"}),
	},
	ReadGate:  "marketing",
	WriteGate: "marketing",
	Public:    []query.Filter{{Column: "is_active", Value: true}},
}

// Default returns the catalog served by the API.
func Default() *Catalog {
	return New(
		Users,
		Departments,
		Doctors,
		Products,
		Orders,
		Consultations,
		HealthRecords,
		Articles,
		CarouselImages,
	)
}
