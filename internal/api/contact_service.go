package api

import (
	"context"

	"github.com/matheus3301/wabridge/internal/store"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

const (
	contactServiceName = packageName + ".ContactService"

	defaultContactLimit = 100
	maxContactLimit     = 1000
)

// ContactServer is the server API for the contact service.
type ContactServer interface {
	ListContacts(context.Context, *ListContactsRequest) (*ListContactsResponse, error)
}

// ContactService lists and searches stored contacts.
type ContactService struct {
	db *store.DB
}

// NewContactService creates a new contact service backed by the store.
func NewContactService(db *store.DB) *ContactService {
	return &ContactService{db: db}
}

var contactServiceDesc = grpc.ServiceDesc{
	ServiceName: contactServiceName,
	HandlerType: (*ContactServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(contactServiceName, "ListContacts", ContactServer.ListContacts),
	},
}

// RegisterContactService registers s on r.
func RegisterContactService(r grpc.ServiceRegistrar, s ContactServer) {
	r.RegisterService(&contactServiceDesc, s)
}

func (s *ContactService) ListContacts(ctx context.Context, req *ListContactsRequest) (*ListContactsResponse, error) {
	limit, offset := page(req.Limit, req.Offset, defaultContactLimit, maxContactLimit)

	contacts, err := s.db.ListContacts(ctx, req.Search, limit, offset)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "list contacts: %v", err)
	}

	resp := &ListContactsResponse{
		Contacts: make([]Contact, 0, len(contacts)),
		Count:    len(contacts),
		HasMore:  len(contacts) == limit,
	}
	for _, c := range contacts {
		resp.Contacts = append(resp.Contacts, Contact{
			JID:         c.JID,
			Name:        c.Name,
			Notify:      c.Notify,
			Phone:       c.Phone,
			DisplayName: c.DisplayName(),
		})
	}
	return resp, nil
}
