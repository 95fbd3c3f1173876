/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package model

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"

	"github.com/acmeproducts/skuflow/model"
)

func (p *CreateProduct) ValidateCreateProduct() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.SKU, validation.Required, validation.By(notBlank)),
		validation.Field(&p.Name, validation.Required),
		validation.Field(&p.Price, validation.NotNil, validation.By(nonNegativePrice)),
	)
}

func (p *UpdateProduct) ValidateUpdateProduct() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.SKU, validation.NilOrNotEmpty, validation.By(notBlank)),
		validation.Field(&p.Name, validation.NilOrNotEmpty),
		validation.Field(&p.Price, validation.By(nonNegativePrice)),
	)
}

func (w *CreateWebhook) ValidateCreateWebhook() error {
	return validation.ValidateStruct(w,
		validation.Field(&w.Name, validation.Required),
		validation.Field(&w.URL, validation.Required, validation.By(httpURL)),
		validation.Field(&w.EventType, validation.Required, validation.By(eventType)),
	)
}

func (w *UpdateWebhook) ValidateUpdateWebhook() error {
	return validation.ValidateStruct(w,
		validation.Field(&w.Name, validation.NilOrNotEmpty),
		validation.Field(&w.URL, validation.NilOrNotEmpty, validation.By(httpURL)),
		validation.Field(&w.EventType, validation.NilOrNotEmpty, validation.By(eventType)),
	)
}

func notBlank(value interface{}) error {
	s, ok := stringValue(value)
	if ok && strings.TrimSpace(s) == "" {
		return errors.New("cannot be blank")
	}
	return nil
}

func nonNegativePrice(value interface{}) error {
	price, ok := value.(*decimal.Decimal)
	if !ok || price == nil {
		return nil
	}
	if price.IsNegative() {
		return errors.New("must not be negative")
	}
	return nil
}

func httpURL(value interface{}) error {
	s, ok := stringValue(value)
	if !ok || s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("must be an absolute http or https URL")
	}
	return nil
}

func eventType(value interface{}) error {
	s, ok := stringValue(value)
	if !ok || s == "" {
		return nil
	}
	if !model.IsValidEventType(s) {
		return fmt.Errorf("must be one of %s", strings.Join(model.EventTypes, ", "))
	}
	return nil
}

// stringValue unwraps the string and *string fields validation.By receives.
func stringValue(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case *string:
		if v == nil {
			return "", false
		}
		return *v, true
	}
	return "", false
}
