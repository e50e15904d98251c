package checkout

import (
	"fmt"
	"strings"

	"github.com/phenomboxing/storefront/internal/cart"
	"github.com/phenomboxing/storefront/pkg/config"
	"github.com/phenomboxing/storefront/pkg/mercadopago"
)

const (
	itemDescriptionSuffix = " - Phenom Boxing Store"
	referencePrefix       = "phenom-"
)

func buildPreference(items []cart.LineItem, input StartInput, ref string, mp config.MercadoPagoConfig, co config.CheckoutConfig) mercadopago.Preference {
	site := strings.TrimRight(co.SiteURL, "/")

	prefItems := make([]mercadopago.Item, 0, len(items))
	for _, item := range items {
		title := item.Name
		if item.Key.HasVariant() {
			title = fmt.Sprintf("%s (%s)", item.Name, item.Key.Variant)
		}
		prefItems = append(prefItems, mercadopago.Item{
			ID:          item.Key.String(),
			Title:       title,
			Description: item.Name + itemDescriptionSuffix,
			PictureURL:  item.Image,
			CategoryID:  item.Category,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			CurrencyID:  mp.Currency,
		})
	}

	address := &mercadopago.Address{
		StreetName: input.Shipping.Street,
		ZipCode:    input.Shipping.ZipCode,
		CityName:   input.Shipping.City,
		StateName:  input.Shipping.State,
	}

	return mercadopago.Preference{
		Items: prefItems,
		Payer: &mercadopago.Payer{
			Name:    input.Payer.FirstName,
			Surname: input.Payer.LastName,
			Email:   input.Payer.Email,
			Phone:   &mercadopago.Phone{Number: input.Payer.Phone},
			Address: &mercadopago.Address{
				StreetName: input.Shipping.Street,
				ZipCode:    input.Shipping.ZipCode,
			},
		},
		Shipments: &mercadopago.Shipments{
			Mode:            "not_specified",
			ReceiverAddress: address,
		},
		BackURLs: mercadopago.BackURLs{
			Success: site + "/payment-success",
			Failure: site + "/payment-failure",
			Pending: site + "/payment-pending",
		},
		AutoReturn: mercadopago.StatusApproved,
		PaymentMethods: &mercadopago.PaymentMethods{
			Installments: mp.Installments,
		},
		NotificationURL:     site + "/api/v1/webhooks/mercadopago",
		StatementDescriptor: mp.StatementDescriptor,
		ExternalReference:   ref,
	}
}
